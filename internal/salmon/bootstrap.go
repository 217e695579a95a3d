package salmon

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// MetaInfo is the subset of meta_info.json needed to decode replicates.
type MetaInfo struct {
	NumValidTargets int    `json:"num_valid_targets"`
	NumBootstraps   int    `json:"num_bootstraps"`
	SampType        string `json:"samp_type"`
}

// ReadMetaInfo decodes a meta_info.json file.
func ReadMetaInfo(path string) (*MetaInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("cannot read meta info", errors.ErrMissingInput).WithPath(path)
	}
	var mi MetaInfo
	if err := json.Unmarshal(data, &mi); err != nil {
		return nil, errors.NewParseError(err.Error(), errors.ErrMalformedInput).WithPath(path)
	}
	if mi.NumValidTargets <= 0 || mi.NumBootstraps <= 0 {
		return nil, errors.NewParseError(
			fmt.Sprintf("meta info lists %d targets and %d replicates", mi.NumValidTargets, mi.NumBootstraps),
			errors.ErrMalformedInput).WithPath(path)
	}
	return &mi, nil
}

// ReadBootstrapsFile decodes a gzipped replicate file into a
// targets-by-replicates matrix.
func ReadBootstrapsFile(path string, mi *MetaInfo) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("cannot open bootstrap file", errors.ErrMissingInput).WithPath(path)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.NewParseError(fmt.Sprintf("gzip: %v", err), errors.ErrMalformedInput).WithPath(path)
	}
	defer gz.Close()

	m, err := ReadBootstraps(gz, mi)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			return nil, pe.WithPath(path)
		}
		return nil, err
	}
	return m, nil
}

// ReadBootstraps decodes NumBootstraps rows of NumValidTargets little-endian
// float64 values. Row b of the stream becomes column b of the result.
func ReadBootstraps(r io.Reader, mi *MetaInfo) (*mat.Dense, error) {
	nt, nb := mi.NumValidTargets, mi.NumBootstraps
	m := mat.NewDense(nt, nb, nil)
	br := bufio.NewReaderSize(r, 1<<16)
	row := make([]byte, 8*nt)
	for b := 0; b < nb; b++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, errors.NewParseError(
				fmt.Sprintf("replicate %d of %d is truncated: %v", b+1, nb, err), errors.ErrMalformedInput)
		}
		for t := 0; t < nt; t++ {
			m.Set(t, b, math.Float64frombits(binary.LittleEndian.Uint64(row[8*t:])))
		}
	}
	return m, nil
}

// WriteBootstraps encodes m in the layout read by ReadBootstraps.
func WriteBootstraps(w io.Writer, m mat.Matrix) error {
	nt, nb := m.Dims()
	row := make([]byte, 8*nt)
	for b := 0; b < nb; b++ {
		for t := 0; t < nt; t++ {
			binary.LittleEndian.PutUint64(row[8*t:], math.Float64bits(m.At(t, b)))
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
