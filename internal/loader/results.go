package loader

import (
	"io"

	"github.com/go-gota/gota/dataframe"

	"github.com/inodb/peakenrich/internal/errs"
)

// LoadResults reads a result table written by an earlier run, or by any
// tool producing Geneset.ID and P.value columns.
func LoadResults(path string) (dataframe.DataFrame, error) {
	rc, err := open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer rc.Close()
	return ReadResults(rc, path)
}

// ReadResults parses a tab-delimited result table. Columns are kept as
// strings so identifiers round-trip unchanged; numeric columns convert on
// access.
func ReadResults(r io.Reader, source string) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
	)
	if df.Err != nil {
		return df, errs.Invalid(source, "", df.Err.Error())
	}
	return df, nil
}
