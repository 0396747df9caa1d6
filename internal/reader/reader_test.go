package reader

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"ingest/internal/config"
)

func TestDetectEncoding(t *testing.T) {
	t.Parallel()

	cp932, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte("品目コード,数量"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	tests := []struct {
		name   string
		sample []byte
		want   string
	}{
		{"plain ascii", []byte("a,b,c\n1,2,3\n"), EncodingUTF8},
		{"utf8 japanese", []byte("品目コード,数量\n"), EncodingUTF8},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n")...), EncodingUTF8},
		{"cp932 japanese", cp932, EncodingCP932},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectEncoding(tt.sample); got != tt.want {
				t.Fatalf("DetectEncoding() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sample string
		want   rune
	}{
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"tab", "a\tb\tc\n1\t2\t3\n", '\t'},
		{"pipe", "a|b|c\n1|2|3\n", '|'},
		{"semicolon", "a;b;c\n1;2;3\n", ';'},
		{"tab beats stray comma", "a\tb,x\tc\n1\t2\t3\n", '\t'},
		{"no candidates falls back to comma", "single\ncolumn\n", ','},
		{"only first lines counted", "a,b\n1,2\n3,4\n5,6\n7,8\n9;9;9;9;9;9;9;9;9\n", ','},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectDelimiter(tt.sample); got != tt.want {
				t.Fatalf("DetectDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadTableBasic(t *testing.T) {
	t.Parallel()

	src := "品目コード,数量,登録日\n0012,10,20240401\n0034,,20240402\n"

	cols, err := ReadTable(context.Background(), strings.NewReader(src), config.Options{}, nil)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}

	if len(cols) != 3 {
		t.Fatalf("got %d columns, want 3", len(cols))
	}
	wantNames := []string{"品目コード", "数量", "登録日"}
	for i, w := range wantNames {
		if cols[i].Name != w {
			t.Fatalf("column %d name = %q, want %q", i, cols[i].Name, w)
		}
	}
	if !reflect.DeepEqual(cols[1].Values, []any{"10", nil}) {
		t.Fatalf("数量 values = %#v, want [10 nil]", cols[1].Values)
	}
}

func TestReadTableCP932(t *testing.T) {
	t.Parallel()

	utf8Src := "品目コード,備考\n0012,納期注意\n"
	raw, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(utf8Src))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	cols, err := ReadTable(context.Background(), strings.NewReader(string(raw)), config.Options{}, nil)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if cols[0].Name != "品目コード" {
		t.Fatalf("decoded header = %q, want 品目コード", cols[0].Name)
	}
	if cols[1].Values[0] != "納期注意" {
		t.Fatalf("decoded value = %v, want 納期注意", cols[1].Values[0])
	}
}

func TestReadTableTSVAutodetect(t *testing.T) {
	t.Parallel()

	src := "a\tb\n1\t2\n"
	cols, err := ReadTable(context.Background(), strings.NewReader(src), config.Options{}, nil)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "a" || cols[1].Values[0] != "2" {
		t.Fatalf("unexpected columns: %#v", cols)
	}
}

func TestReadTableSkipsMisalignedRows(t *testing.T) {
	t.Parallel()

	src := "a,b\n1,2\nonly_one_field\n3,4\n"
	cols, err := ReadTable(context.Background(), strings.NewReader(src), config.Options{}, nil)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if !reflect.DeepEqual(cols[0].Values, []any{"1", "3"}) {
		t.Fatalf("column a = %#v, want [1 3]", cols[0].Values)
	}
}

func TestReadTableWithoutHeader(t *testing.T) {
	t.Parallel()

	src := "1,2\n3,4\n"
	opt := config.Options{"has_header": false}

	cols, err := ReadTable(context.Background(), strings.NewReader(src), opt, nil)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if cols[0].Name != "column_1" || cols[1].Name != "column_2" {
		t.Fatalf("synthetic names = %q, %q", cols[0].Name, cols[1].Name)
	}
	if !reflect.DeepEqual(cols[0].Values, []any{"1", "3"}) {
		t.Fatalf("column_1 = %#v, want [1 3]", cols[0].Values)
	}
}

func TestReadTableBOMStripped(t *testing.T) {
	t.Parallel()

	src := "\uFEFFa,b\n1,2\n"
	cols, err := ReadTable(context.Background(), strings.NewReader(src), config.Options{}, nil)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if cols[0].Name != "a" {
		t.Fatalf("header with BOM = %q, want %q", cols[0].Name, "a")
	}
}

func TestReadTableEmptyInput(t *testing.T) {
	t.Parallel()

	cols, err := ReadTable(context.Background(), strings.NewReader(""), config.Options{}, nil)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if cols != nil {
		t.Fatalf("empty input produced columns: %#v", cols)
	}
}

func TestReadTableCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadTable(ctx, strings.NewReader("a,b\n1,2\n"), config.Options{}, nil)
	if err != context.Canceled {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
