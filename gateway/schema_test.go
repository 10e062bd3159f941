package gateway

import (
	"reflect"
	"testing"
)

func TestPrimaryKeyOf_ThreeTiers(t *testing.T) {
	declared := []Column{
		{Name: "code", Type: "varchar"},
		{Name: "rowId", Type: "int", IsPrimaryKey: true},
	}
	if pk := PrimaryKeyOf(declared); pk != "rowId" {
		t.Fatalf("declared pk: got %q", pk)
	}

	idFallback := []Column{
		{Name: "code", Type: "varchar"},
		{Name: "ID", Type: "int"},
	}
	if pk := PrimaryKeyOf(idFallback); pk != "ID" {
		t.Fatalf("id fallback: got %q; case-insensitive match must keep schema casing", pk)
	}

	firstColumn := []Column{
		{Name: "empId", Type: "varchar"},
		{Name: "date", Type: "date"},
	}
	if pk := PrimaryKeyOf(firstColumn); pk != "empId" {
		t.Fatalf("first-column fallback: got %q", pk)
	}

	if pk := PrimaryKeyOf(nil); pk != "" {
		t.Fatalf("empty schema: got %q", pk)
	}
}

func TestFindColumn_CaseInsensitive(t *testing.T) {
	cols := []Column{
		{Name: "CreateDate", Type: "datetime"},
		{Name: "qNo", Type: "varchar"},
	}
	if got := FindColumn(cols, "createdate"); got != "CreateDate" {
		t.Fatalf("FindColumn(createdate) = %q", got)
	}
	if got := FindColumn(cols, "QNO"); got != "qNo" {
		t.Fatalf("FindColumn(QNO) = %q", got)
	}
	if got := FindColumn(cols, "missing"); got != "" {
		t.Fatalf("FindColumn(missing) = %q; expected empty", got)
	}
}

func TestTextColumns(t *testing.T) {
	cols := []Column{
		{Name: "id", Type: "int"},
		{Name: "fullName", Type: "varchar"},
		{Name: "note", Type: "text"},
		{Name: "salary", Type: "decimal"},
		{Name: "bio", Type: "longtext"},
	}
	got := TextColumns(cols)
	if !reflect.DeepEqual(got, []string{"fullName", "note", "bio"}) {
		t.Fatalf("TextColumns = %v", got)
	}
}
