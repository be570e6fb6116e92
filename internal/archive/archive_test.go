package archive

import (
	"context"
	"strings"
	"testing"
)

func TestNull_ArchiveReturnsNullLocation(t *testing.T) {
	var a Null
	loc, err := a.Archive(context.Background(), "task-1/output.tar", strings.NewReader("data"), 4)
	if err != nil {
		t.Fatal(err)
	}
	if loc != "null://task-1/output.tar" {
		t.Errorf("location = %q", loc)
	}
}

func TestNull_DrainsReader(t *testing.T) {
	var a Null
	r := strings.NewReader("some bytes that must be drained")
	if _, err := a.Archive(context.Background(), "k", r, int64(r.Len())); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Errorf("reader not drained, %d bytes remain", r.Len())
	}
}
