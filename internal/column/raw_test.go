package column

import (
	"testing"

	"github.com/xtxerr/tskv/internal/model"
)

func TestRawReadBinarySearch(t *testing.T) {
	ts := NewRawTimestampsColumn()
	if err := ts.Write(model.Records{{Timestamp: 1}, {Timestamp: 3}, {Timestamp: 5}, {Timestamp: 7}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	vals := NewRawValuesColumn()
	if err := vals.Write(model.Records{{Value: 10}, {Value: 30}, {Value: 50}, {Value: 70}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	paired := NewRawReadColumn(ts, vals)
	got := paired.Read(model.TimeRange{Start: 2, End: 6})
	assertValues(t, got.Values(), []float64{30, 50})
	if len(got.Timestamps()) != 2 || got.Timestamps()[0] != 3 || got.Timestamps()[1] != 5 {
		t.Errorf("timestamps = %v, want [3 5]", got.Timestamps())
	}
}

func TestRawTimestampsRejectsOutOfOrderWrite(t *testing.T) {
	ts := NewRawTimestampsColumn()
	if err := ts.Write(model.Records{{Timestamp: 5}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := ts.Write(model.Records{{Timestamp: 3}}); err == nil {
		t.Error("expected error writing an out-of-order timestamp")
	}
}

func TestRawTimestampsMergeOrderViolation(t *testing.T) {
	a := NewRawTimestampsColumn()
	_ = a.Write(model.Records{{Timestamp: 10}})
	b := NewRawTimestampsColumn()
	_ = b.Write(model.Records{{Timestamp: 1}})

	if err := a.Merge(b); err == nil {
		t.Error("expected merge-order violation")
	}
}

func TestRawReadColumnMergeConcatenates(t *testing.T) {
	a := &RawReadColumn{}
	af := NewRawTimestampsColumn()
	_ = af.Write(model.Records{{Timestamp: 1}, {Timestamp: 2}})
	avals := NewRawValuesColumn()
	_ = avals.Write(model.Records{{Value: 1}, {Value: 2}})
	a = NewRawReadColumn(af, avals)

	bf := NewRawTimestampsColumn()
	_ = bf.Write(model.Records{{Timestamp: 3}, {Timestamp: 4}})
	bvals := NewRawValuesColumn()
	_ = bvals.Write(model.Records{{Value: 3}, {Value: 4}})
	b := NewRawReadColumn(bf, bvals)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	assertValues(t, a.Values(), []float64{1, 2, 3, 4})
}

func TestRawSerializeRoundTrip(t *testing.T) {
	ts := NewRawTimestampsColumn()
	_ = ts.Write(model.Records{{Timestamp: 1}, {Timestamp: 9}, {Timestamp: 20}})
	back, err := DeserializeRawTimestampsColumn(ts.Serialize())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	got := back.Timestamps()
	want := ts.Timestamps()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("timestamps[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
