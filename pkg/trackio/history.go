package trackio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	da "github.com/lintang-b-s/bikestats/pkg/datastructure"
	"github.com/lintang-b-s/bikestats/pkg/util"
)

var bzip2Magic = []byte("BZh")

// WriteHistory writes one "time,longitude,latitude,altitude,accuracy" line per record, in the given order.
func WriteHistory(w io.Writer, records []da.Record, compress bool) error {
	if !compress {
		return writeRecords(w, records)
	}

	bz, err := bzip2.NewWriter(w, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	if err := writeRecords(bz, records); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

func writeRecords(w io.Writer, records []da.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		lonF := strconv.FormatFloat(r.Lon, 'f', -1, 64)
		latF := strconv.FormatFloat(r.Lat, 'f', -1, 64)
		altF := strconv.FormatFloat(r.Altitude, 'f', -1, 64)
		accF := strconv.FormatFloat(r.Accuracy, 'f', -1, 64)

		fmt.Fprintf(bw, "%d,%s,%s,%s,%s\n", r.TimeMillis, lonF, latF, altF, accF)
	}
	return bw.Flush()
}

// ReadHistory parses lines written by WriteHistory. bzip2 input is detected from the stream header.
func ReadHistory(r io.Reader) ([]da.Record, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(bzip2Magic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, util.WrapErrorf(err, util.ErrLoad, "read history")
	}
	if bytes.Equal(head, bzip2Magic) {
		bz, err := bzip2.NewReader(br, nil)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrLoad, "open compressed history")
		}
		defer bz.Close()
		br = bufio.NewReader(bz)
	}

	records := make([]da.Record, 0)
	for lineNo := 1; ; lineNo++ {
		line, err := util.ReadLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrLoad, "read history line %d", lineNo)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrLoad, "history line %d", lineNo)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(line string) (da.Record, error) {
	tokens := strings.Split(strings.TrimSpace(line), ",")
	if len(tokens) != 5 {
		return da.Record{}, fmt.Errorf("expected 5 fields, got %d", len(tokens))
	}

	var (
		rec da.Record
		err error
	)
	rec.TimeMillis, err = strconv.ParseInt(tokens[0], 10, 64)
	if err != nil {
		return da.Record{}, err
	}
	floats := []*float64{&rec.Lon, &rec.Lat, &rec.Altitude, &rec.Accuracy}
	for i, dst := range floats {
		*dst, err = strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return da.Record{}, err
		}
	}
	return rec, nil
}

// SaveHistoryFile replaces path atomically with the encoded records.
func SaveHistoryFile(path string, records []da.Record, compress bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteHistory(tmp, records, compress); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadHistoryFile. a missing file is an empty history
func LoadHistoryFile(path string) ([]da.Record, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []da.Record{}, nil
	}
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrLoad, "open history %s", path)
	}
	defer f.Close()

	return ReadHistory(f)
}
