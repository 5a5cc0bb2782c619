package dataset

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func readJSONArray(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	//nolint:gosec
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	var out []map[string]interface{}
	test.That(t, json.Unmarshal(data, &out), test.ShouldBeNil)
	return out
}

func TestJSONArraySink(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		sink, err := NewJSONArraySink(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sink.Close(), test.ShouldBeNil)
		//nolint:gosec
		data, err := os.ReadFile(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(data), test.ShouldEqual, "[]\n")
	})

	t.Run("records", func(t *testing.T) {
		path := filepath.Join(dir, "records.json")
		sink, err := NewJSONArraySink(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sink.Path(), test.ShouldEqual, path)
		for i := 0; i < 3; i++ {
			test.That(t, sink.Write(testRecord()), test.ShouldBeNil)
		}
		test.That(t, sink.Count(), test.ShouldEqual, 3)
		test.That(t, sink.Close(), test.ShouldBeNil)

		records := readJSONArray(t, path)
		test.That(t, records, test.ShouldHaveLength, 3)
		test.That(t, records[2]["a_joint_pos"], test.ShouldResemble, []interface{}{0.5, 0.25})
	})

	t.Run("bad path", func(t *testing.T) {
		_, err := NewJSONArraySink(filepath.Join(dir, "missing", "out.json"))
		test.That(t, err, test.ShouldWrap, ErrIO)
	})
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	sink, err := NewCSVSink(path, 2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sink.Write(testRecord()), test.ShouldBeNil)
	test.That(t, sink.Write(testRecord()), test.ShouldBeNil)

	bad := testRecord()
	bad.BeforeJoints = []float64{1}
	test.That(t, sink.Write(bad), test.ShouldNotBeNil)
	test.That(t, sink.Close(), test.ShouldBeNil)

	//nolint:gosec
	f, err := os.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rows, test.ShouldHaveLength, 3)
	test.That(t, rows[0], test.ShouldResemble, CSVHeader(2, 2))
	test.That(t, rows[1], test.ShouldResemble, testRecord().CSVRow())

	t.Run("header only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.csv")
		sink, err := NewCSVSink(path, 1, 1)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sink.Close(), test.ShouldBeNil)
		//nolint:gosec
		f, err := os.Open(path)
		test.That(t, err, test.ShouldBeNil)
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rows, test.ShouldResemble, [][]string{CSVHeader(1, 1)})
	})
}

func TestMemorySink(t *testing.T) {
	var sink MemorySink
	test.That(t, sink.Write(testRecord()), test.ShouldBeNil)
	test.That(t, sink.Records(), test.ShouldHaveLength, 1)
	test.That(t, sink.Close(), test.ShouldBeNil)
	test.That(t, sink.Write(testRecord()), test.ShouldNotBeNil)
	test.That(t, sink.Records(), test.ShouldHaveLength, 1)
}
