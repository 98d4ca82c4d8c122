package util

import (
	"reflect"
	"runtime"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		spec    string
		want    []int
		wantErr bool
	}{
		{spec: "5", want: []int{5}},
		{spec: "10-12", want: []int{10, 11, 12}},
		{spec: "30,10-11", want: []int{10, 11, 30}},
		{spec: " 1 - 2 , 4 ", want: []int{1, 2, 4}},
		{spec: "1-3,2-4", want: []int{1, 2, 3, 4}},
		{spec: "1,,2", want: []int{1, 2}},
		{spec: "", want: nil},
		{spec: "5-1", wantErr: true},
		{spec: "abc", wantErr: true},
		{spec: "1-2-3", wantErr: true},
		{spec: "-4", wantErr: true},
		{spec: "0-3", wantErr: true},
		{spec: "4094-4095", wantErr: true},
		{spec: "1-9999999999", wantErr: true},
		{spec: "10,1-9223372036854775807", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseRange(tt.spec, MinVLANID, MaxVLANID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRange(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRange(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestFormatRange(t *testing.T) {
	tests := []struct {
		values []int
		want   string
	}{
		{[]int{10, 11, 12, 30}, "10-12,30"},
		{[]int{1, 3, 5}, "1,3,5"},
		{[]int{5}, "5"},
		{nil, ""},
		{[]int{30, 12, 10, 11, 11}, "10-12,30"},
		{[]int{1, 2}, "1-2"},
	}

	for _, tt := range tests {
		if got := FormatRange(tt.values); got != tt.want {
			t.Errorf("FormatRange(%v) = %q, want %q", tt.values, got, tt.want)
		}
	}
}

func TestParseVLANList(t *testing.T) {
	got, err := ParseVLANList("200,100-102")
	if err != nil {
		t.Fatalf("ParseVLANList: %v", err)
	}
	if !reflect.DeepEqual(got, []int{100, 101, 102, 200}) {
		t.Errorf("ParseVLANList = %v", got)
	}

	for _, spec := range []string{"", " , ", "0", "4095", "4090-4100", "x", "1-60000000"} {
		if _, err := ParseVLANList(spec); err == nil {
			t.Errorf("ParseVLANList(%q) should fail", spec)
		}
	}
}

func TestParseVLANList_HugeRangeRejectedCheaply(t *testing.T) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	if _, err := ParseVLANList("1-60000000"); err == nil {
		t.Fatal("ParseVLANList(1-60000000) should fail")
	}
	runtime.ReadMemStats(&after)
	if grew := after.TotalAlloc - before.TotalAlloc; grew > 1<<20 {
		t.Errorf("rejecting an oversized range allocated %d bytes", grew)
	}
}

func TestValidateVNI(t *testing.T) {
	if err := ValidateVNI(10100); err != nil {
		t.Errorf("ValidateVNI(10100) = %v", err)
	}
	if err := ValidateVNI(0); err == nil {
		t.Error("ValidateVNI(0) should fail")
	}
	if err := ValidateVNI(MaxVNI + 1); err == nil {
		t.Error("ValidateVNI(max+1) should fail")
	}
}
