package mainydb

import (
	"testing"
	"time"
)

func TestCompareCrossType(t *testing.T) {
	cases := []struct {
		name    string
		a, b    Value
		wantNeg bool // a < b
	}{
		{"null < int", Null(), Int(1), true},
		{"int < string", Int(5), String("a"), true},
		{"string < document", String("z"), Doc(NewDocument()), true},
		{"document < array", Doc(NewDocument()), Array(nil), true},
		{"array < binary", Array(nil), Binary([]byte{1}), true},
		{"binary < objectid", Binary([]byte{1}), ObjectIDValue(ObjectID("x")), true},
		{"objectid < bool", ObjectIDValue(ObjectID("x")), Bool(false), true},
		{"bool < timestamp", Bool(true), Timestamp(time.Unix(0, 0)), true},
		{"int==float equal magnitude", Int(1), Float(1.0), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Compare(c.a, c.b)
			if c.wantNeg && got >= 0 {
				t.Errorf("Compare(%v, %v) = %d, wanted < 0", c.a, c.b, got)
			}
			if !c.wantNeg && got != 0 {
				t.Errorf("Compare(%v, %v) = %d, wanted 0", c.a, c.b, got)
			}
		})
	}
}

func TestCompareNumericNaN(t *testing.T) {
	n := Float(nan())
	if Compare(n, Int(100)) <= 0 {
		t.Error("NaN should compare greater than all other numerics")
	}
	if Compare(Int(100), n) >= 0 {
		t.Error("everything should compare less than NaN")
	}
}

func TestCompareArrayAgainstScalarUsesMin(t *testing.T) {
	arr := Array([]Value{Int(5), Int(1), Int(9)})
	// ascending sort convention: array's minimum element (1) is used
	if c := Compare(arr, Int(3)); c >= 0 {
		t.Errorf("Compare(arr{5,1,9}, 3) = %d, wanted < 0 (min element 1 < 3)", c)
	}
	if c := Compare(Int(0), arr); c >= 0 {
		t.Errorf("Compare(0, arr{5,1,9}) = %d, wanted < 0 (0 < min element 1)", c)
	}
}

func TestCompareArrayElementwise(t *testing.T) {
	a := Array([]Value{Int(1), Int(2)})
	b := Array([]Value{Int(1), Int(3)})
	if Compare(a, b) >= 0 {
		t.Errorf("expected a < b elementwise")
	}
	short := Array([]Value{Int(1)})
	long := Array([]Value{Int(1), Int(2)})
	if Compare(short, long) >= 0 {
		t.Errorf("shorter array with equal prefix should sort before longer")
	}
}
