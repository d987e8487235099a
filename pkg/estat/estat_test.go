package estat

import (
	"errors"
	"strings"
	"testing"
)

const arrayPayload = `{"GET_STATS_DATA":{"RESULT":{"STATUS":0},"STATISTICAL_DATA":{"DATA_INF":{"VALUE":[
 {"@tab":"1","@time":"2024000101","@cat01":"102000","@cat02":"20","@cat03":"101170","@unit":"件","$":"1200"},
 {"@tab":"1","@time":"2024000101","@cat01":"103000","@cat02":"20","@cat03":"101170","@unit":"件","$":"-"}
]}}}}`

const objectPayload = `{"GET_STATS_DATA":{"STATISTICAL_DATA":{"DATA_INF":{"VALUE":
 {"@time":"2024000202","@cat01":"301000","@cat02":"10","@cat03":"101010","$":"42"}
}}}}`

func TestDecode_Array(t *testing.T) {
	p, err := Decode(strings.NewReader(arrayPayload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	entries := p.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if entries[0].Region != "101170" || entries[0].Value.Int() != 1200 {
		t.Errorf("entries[0]: got %+v", entries[0])
	}
	if got := entries[1].Value.Int(); got != 0 {
		t.Errorf("placeholder value: got %d, want 0", got)
	}
}

func TestDecode_SingleObject(t *testing.T) {
	p, err := Decode(strings.NewReader(objectPayload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	entries := p.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	if entries[0].Status != "301000" || entries[0].Value.Int() != 42 {
		t.Errorf("entry: got %+v", entries[0])
	}
}

func TestDecode_MissingValue(t *testing.T) {
	p, err := Decode(strings.NewReader(`{"GET_STATS_DATA":{}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := len(p.Entries()); n != 0 {
		t.Errorf("entries: got %d, want 0", n)
	}
}

func TestDecode_Invalid(t *testing.T) {
	cases := map[string]string{
		"truncated":    `{"GET_STATS_DATA":`,
		"scalar value": `{"GET_STATS_DATA":{"STATISTICAL_DATA":{"DATA_INF":{"VALUE":"x"}}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestAmount_Int(t *testing.T) {
	cases := []struct {
		in   Amount
		want int64
	}{
		{"1200", 1200},
		{" 35 ", 35},
		{"12.7", 12},
		{"-", 0},
		{"***", 0},
		{"", 0},
		{"-5", -5},
	}
	for _, c := range cases {
		if got := c.in.Int(); got != c.want {
			t.Errorf("Amount(%q).Int(): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAmount_NumberLiteral(t *testing.T) {
	p, err := Decode(strings.NewReader(`{"GET_STATS_DATA":{"STATISTICAL_DATA":{"DATA_INF":{"VALUE":[{"@time":"2024000101","$":77}]}}}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := p.Entries()[0].Value.Int(); got != 77 {
		t.Errorf("value: got %d, want 77", got)
	}
}

func TestPeriod(t *testing.T) {
	got, err := Period("2024001212")
	if err != nil {
		t.Fatalf("Period: %v", err)
	}
	if got != "2024-12" {
		t.Errorf("Period: got %q, want 2024-12", got)
	}

	for _, bad := range []string{"", "2024", "2024001313", "20x4000101", "2024000000"} {
		if _, err := Period(bad); !errors.Is(err, ErrMalformedTime) {
			t.Errorf("Period(%q): got %v, want ErrMalformedTime", bad, err)
		}
	}
}
