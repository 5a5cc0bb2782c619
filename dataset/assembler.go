package dataset

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/ikdata/logging"
	"go.viam.com/ikdata/utils"
)

// AssembleDataset concatenates the JSON arrays held by the partition files, in the given order, into a single
// array written to output, then deletes the partitions. The output only appears once it is complete. A missing
// or malformed partition fails the assembly and leaves every partition in place.
func AssembleDataset(partitions []string, output string, logger logging.Logger) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+"-*.tmp")
	if err != nil {
		return 0, NewIOError(err, "creating temporary output next to %s", output)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	count, err := concatArrays(partitions, w)
	if err == nil {
		err = w.Flush()
	}
	err = multierr.Combine(err, tmp.Close())
	if err != nil {
		utils.RemoveFilesNoError(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, output); err != nil {
		utils.RemoveFilesNoError(tmpPath)
		return 0, NewIOError(err, "moving dataset into place at %s", output)
	}
	logger.Infow("assembled dataset", "path", output, "records", count, "partitions", len(partitions))

	if err := utils.RemoveFiles(partitions...); err != nil {
		return count, NewIOError(err, "removing partitions")
	}
	return count, nil
}

func concatArrays(partitions []string, w io.Writer) (int, error) {
	if _, err := io.WriteString(w, "["); err != nil {
		return 0, NewIOError(err, "writing dataset")
	}
	count := 0
	for _, path := range partitions {
		n, err := copyArray(path, w, count == 0)
		if err != nil {
			return 0, err
		}
		count += n
	}
	closing := "]\n"
	if count > 0 {
		closing = "\n]\n"
	}
	if _, err := io.WriteString(w, closing); err != nil {
		return 0, NewIOError(err, "writing dataset")
	}
	return count, nil
}

// copyArray streams the elements of the JSON array in path to w, each preceded by a separator.
func copyArray(path string, w io.Writer, first bool) (count int, err error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return 0, NewIOError(err, "opening partition")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	dec := json.NewDecoder(bufio.NewReader(f))
	malformed := func(reason error) error {
		return NewIOError(reason, "partition %s is not a JSON array", path)
	}
	tok, err := dec.Token()
	if err != nil {
		return 0, malformed(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, malformed(errors.Errorf("found %v", tok))
	}
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return 0, malformed(err)
		}
		sep := ",\n"
		if first && count == 0 {
			sep = "\n"
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return 0, NewIOError(err, "writing dataset")
		}
		if _, err := w.Write(raw); err != nil {
			return 0, NewIOError(err, "writing dataset")
		}
		count++
	}
	if _, err := dec.Token(); err != nil {
		return 0, malformed(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return 0, malformed(errors.New("trailing data after the array"))
	}
	return count, nil
}
