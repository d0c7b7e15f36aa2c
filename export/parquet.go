package export

import (
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	vo2trend "github.com/lucasjlepore/vo2-trend"
)

type seriesParquetRow struct {
	TimeUTCISO string  `parquet:"name=time_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8"`
	UnixMillis int64   `parquet:"name=unix_ms, type=INT64"`
	VO2Max     float64 `parquet:"name=vo2_max, type=DOUBLE"`
	Category   string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Color      string  `parquet:"name=color, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

func writeSeriesParquet(path string, points []vo2trend.SeriesPoint) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(seriesParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, p := range points {
		row := seriesParquetRow{
			TimeUTCISO: formatTime(p.Time.UTC()),
			UnixMillis: p.Time.UnixMilli(),
			VO2Max:     p.Value,
			Category:   string(p.Category),
			Color:      string(p.Category.Color()),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}
