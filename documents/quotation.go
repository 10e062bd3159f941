package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/gateway"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

const (
	QuotationTable      = "sales_quotations"
	QuotationItemsTable = "sales_quotationitems"
	QuotationPrefix     = "Q"
	QuotationNoColumn   = "qNo"
	quotationNoWidth    = 3
)

const (
	StatusDraft     = "Draft"
	StatusConfirmed = "Confirmed"
)

var tracer = otel.Tracer("clinic-backend")

// CustomerSnapshot is denormalized onto the document header at write time;
// it is a copy, not a foreign key.
type CustomerSnapshot struct {
	Code       string `json:"code"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	NationalId string `json:"nationalId"`
	Age        int    `json:"age"`
}

// UnmarshalJSON accepts either an object or a JSON-encoded string holding
// one; older clients send the latter.
func (c *CustomerSnapshot) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			var inner struct {
				Code       string `json:"code"`
				FirstName  string `json:"firstName"`
				LastName   string `json:"lastName"`
				NationalId string `json:"nationalId"`
				Age        int    `json:"age"`
			}
			if json.Unmarshal([]byte(s), &inner) == nil {
				*c = CustomerSnapshot(inner)
			}
		}
		return nil
	}
	type alias CustomerSnapshot
	var a alias
	if err := json.Unmarshal(b, &a); err == nil {
		*c = CustomerSnapshot(a)
	}
	return nil
}

type ItemInput struct {
	ItemCode  string          `json:"itemCode"`
	ItemName  string          `json:"itemName"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Discount  decimal.Decimal `json:"discount"`
	Uom       string          `json:"uom"`
	Remark    string          `json:"remark"`
}

// ItemList tolerates a JSON-encoded string holding the array, like
// CustomerSnapshot does. Unparseable input decodes to an empty list.
type ItemList []ItemInput

func (l *ItemList) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			var inner []ItemInput
			if json.Unmarshal([]byte(s), &inner) == nil {
				*l = inner
			}
		}
		return nil
	}
	var inner []ItemInput
	if err := json.Unmarshal(b, &inner); err == nil {
		*l = inner
	}
	return nil
}

type NewQuotation struct {
	QNo       string           `json:"qNo"`
	QDate     string           `json:"qDate"`
	Confirmed bool             `json:"confirmed"`
	Customer  CustomerSnapshot `json:"customer"`
	Items     ItemList         `json:"items"`
	Note      string           `json:"note"`
}

// DecodeNewQuotation parses leniently: an unparseable body yields the zero
// payload, mirroring the generic CRUD body handling.
func DecodeNewQuotation(body []byte) *NewQuotation {
	var input NewQuotation
	_ = json.Unmarshal(body, &input)
	return &input
}

// computeTotals recomputes the header money columns from the current line
// items. Rounding happens once, at the grand total, to avoid compounding
// per-line rounding error.
func computeTotals(items []ItemInput) (before, discount, grand decimal.Decimal) {
	for _, it := range items {
		before = before.Add(it.Qty.Mul(it.UnitPrice))
		discount = discount.Add(it.Discount)
	}
	grand = before.Sub(discount).Round(2)
	return before, discount, grand
}

func lineTotal(it ItemInput) decimal.Decimal {
	total := it.Qty.Mul(it.UnitPrice).Sub(it.Discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func statusFromConfirmed(confirmed bool) string {
	if confirmed {
		return StatusConfirmed
	}
	return StatusDraft
}

func quotationHeadRecord(qNo string, input *NewQuotation, before, discount, grand decimal.Decimal) *gateway.Record {
	rec := gateway.NewRecord()
	rec.Set("qNo", qNo)
	if strings.TrimSpace(input.QDate) != "" {
		rec.Set("qDate", input.QDate)
	} else {
		rec.Set("qDate", nil)
	}
	rec.Set("status", statusFromConfirmed(input.Confirmed))
	rec.Set("customerCode", input.Customer.Code)
	rec.Set("customerFirstName", input.Customer.FirstName)
	rec.Set("customerLastName", input.Customer.LastName)
	rec.Set("customerNationalId", input.Customer.NationalId)
	rec.Set("customerAge", input.Customer.Age)
	rec.Set("totalBeforeDiscount", before)
	rec.Set("discount", discount)
	rec.Set("grandTotal", grand)
	rec.Set("note", input.Note)
	return rec
}

func insertQuotationItems(ctx context.Context, tx *gorm.DB, qNo string, items []ItemInput) error {
	for _, it := range items {
		rec := gateway.NewRecord()
		rec.Set("qNo", qNo)
		rec.Set("itemCode", it.ItemCode)
		rec.Set("itemName", it.ItemName)
		rec.Set("qty", it.Qty)
		rec.Set("unitPrice", it.UnitPrice)
		rec.Set("lineTotal", lineTotal(it))
		rec.Set("CreateDate", gateway.RawNow)
		stmt, err := gateway.BuildInsert(QuotationItemsTable, rec)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(stmt.SQL, stmt.Bind...).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateQuotation writes the header and all line items in one transaction.
// Numbering runs under the table advisory lock plus the UNIQUE index on qNo;
// a caller-supplied number is honored unless already in use, in which case a
// fresh one is generated silently.
func CreateQuotation(ctx context.Context, input *NewQuotation) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "CreateQuotation")
	defer span.End()

	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, QuotationTable)
	if err != nil {
		return nil, err
	}

	before, discount, grand := computeTotals(input.Items)
	docDate := parseDocDate(input.QDate)

	var head map[string]any
	err = withNumberLock(ctx, QuotationTable, func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			if lockErr := gateway.AcquireTableLock(tx, QuotationTable); lockErr != nil {
				return lockErr
			}
			defer gateway.ReleaseTableLock(tx, QuotationTable)

			qNo := strings.TrimSpace(input.QNo)
			if qNo != "" {
				taken, exErr := documentNumberExists(ctx, tx, QuotationTable, QuotationNoColumn, qNo)
				if exErr != nil {
					return exErr
				}
				if taken {
					qNo = ""
				}
			}
			if qNo == "" {
				var genErr error
				qNo, genErr = NextDocumentNumber(ctx, tx, QuotationTable, QuotationNoColumn, QuotationPrefix, docDate, quotationNoWidth)
				if genErr != nil {
					return genErr
				}
			}

			rec := quotationHeadRecord(qNo, input, before, discount, grand)
			gateway.EnrichOnCreate(ctx, cols, rec)

			var insErr error
			head, insErr = gateway.InsertReturning(ctx, tx, QuotationTable, cols, rec)
			if gateway.IsDuplicateEntry(insErr) {
				// Lost the number to a concurrent writer despite the locks;
				// regenerate once under the same transaction.
				qNo, insErr = NextDocumentNumber(ctx, tx, QuotationTable, QuotationNoColumn, QuotationPrefix, docDate, quotationNoWidth)
				if insErr != nil {
					return insErr
				}
				rec.Set("qNo", qNo)
				head, insErr = gateway.InsertReturning(ctx, tx, QuotationTable, cols, rec)
			}
			if insErr != nil {
				return insErr
			}
			return insertQuotationItems(ctx, tx, qNo, input.Items)
		})
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// ReplaceQuotation updates the header and replaces all line items: delete
// everything under the document number, reinsert the new set. An empty items
// array legitimately leaves the document with zero lines.
func ReplaceQuotation(ctx context.Context, id string, input *NewQuotation) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "ReplaceQuotation")
	defer span.End()

	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, QuotationTable)
	if err != nil {
		return nil, err
	}
	pk := gateway.PrimaryKeyOf(cols)
	before, discount, grand := computeTotals(input.Items)

	var head map[string]any
	err = db.Transaction(func(tx *gorm.DB) error {
		rec := gateway.NewRecord()
		if strings.TrimSpace(input.QNo) != "" {
			rec.Set("qNo", input.QNo)
		}
		if strings.TrimSpace(input.QDate) != "" {
			rec.Set("qDate", input.QDate)
		}
		rec.Set("status", statusFromConfirmed(input.Confirmed))
		rec.Set("customerCode", input.Customer.Code)
		rec.Set("customerFirstName", input.Customer.FirstName)
		rec.Set("customerLastName", input.Customer.LastName)
		rec.Set("customerNationalId", input.Customer.NationalId)
		rec.Set("customerAge", input.Customer.Age)
		rec.Set("totalBeforeDiscount", before)
		rec.Set("discount", discount)
		rec.Set("grandTotal", grand)
		rec.Set("note", input.Note)
		gateway.EnrichOnUpdate(ctx, cols, rec)

		stmt, buildErr := gateway.BuildUpdate(QuotationTable, rec, pk)
		if buildErr != nil {
			return buildErr
		}
		if execErr := tx.WithContext(ctx).Exec(stmt.SQL, append(stmt.Bind, id)...).Error; execErr != nil {
			return execErr
		}
		var lookErr error
		head, lookErr = gateway.RowByKey(ctx, tx, QuotationTable, pk, id)
		if lookErr != nil {
			return lookErr
		}

		qNo := stringField(head, "qNo")
		if delErr := tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(QuotationItemsTable), quoteIdent(QuotationNoColumn)), qNo).Error; delErr != nil {
			return delErr
		}
		return insertQuotationItems(ctx, tx, qNo, input.Items)
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// GetQuotation returns the header with the customer snapshot rebuilt and the
// line items attached. Line discount is derived back from lineTotal.
func GetQuotation(ctx context.Context, id string) (map[string]any, error) {
	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, QuotationTable)
	if err != nil {
		return nil, err
	}
	head, err := gateway.RowByKey(ctx, db, QuotationTable, gateway.PrimaryKeyOf(cols), id)
	if err != nil {
		return nil, err
	}

	qNo := stringField(head, "qNo")
	items, err := quotationItems(ctx, db, []string{qNo})
	if err != nil {
		return nil, err
	}

	head["customer"] = map[string]any{
		"code":       head["customerCode"],
		"firstName":  head["customerFirstName"],
		"lastName":   head["customerLastName"],
		"nationalId": head["customerNationalId"],
		"age":        head["customerAge"],
	}
	list := items[qNo]
	if list == nil {
		list = make([]map[string]any, 0)
	}
	head["items"] = list
	return head, nil
}

// ListQuotations supports the status filter ("Confirm" and "Confirmed" are
// interchangeable) and the withItems stitch: headers first, then one IN query
// over the document numbers.
func ListQuotations(ctx context.Context, status string, withItems bool) ([]map[string]any, error) {
	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, QuotationTable)
	if err != nil {
		return nil, err
	}
	pk := gateway.PrimaryKeyOf(cols)

	sql := fmt.Sprintf("SELECT * FROM %s", quoteIdent(QuotationTable))
	var bind []any
	if s := strings.ToLower(strings.TrimSpace(status)); s != "" {
		if s == "confirm" || s == "confirmed" {
			sql += " WHERE LOWER(status) IN (?, ?)"
			bind = append(bind, "confirm", "confirmed")
		} else {
			sql += " WHERE LOWER(status) = ?"
			bind = append(bind, s)
		}
	}
	sql += fmt.Sprintf(" ORDER BY %s DESC", quoteIdent(pk))

	heads := make([]map[string]any, 0)
	if err := db.WithContext(ctx).Raw(sql, bind...).Scan(&heads).Error; err != nil {
		return nil, err
	}
	if !withItems || len(heads) == 0 {
		return heads, nil
	}

	var qNos []string
	for _, h := range heads {
		if qNo := stringField(h, "qNo"); qNo != "" {
			qNos = append(qNos, qNo)
		}
	}
	items, err := quotationItems(ctx, db, qNos)
	if err != nil {
		return nil, err
	}
	for _, h := range heads {
		list := items[stringField(h, "qNo")]
		if list == nil {
			list = make([]map[string]any, 0)
		}
		h["items"] = list
	}
	return heads, nil
}

// DeleteQuotation removes the header and its items in one transaction.
func DeleteQuotation(ctx context.Context, id string) (map[string]any, error) {
	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, QuotationTable)
	if err != nil {
		return nil, err
	}
	pk := gateway.PrimaryKeyOf(cols)

	var head map[string]any
	err = db.Transaction(func(tx *gorm.DB) error {
		var lookErr error
		head, lookErr = gateway.RowByKey(ctx, tx, QuotationTable, pk, id)
		if lookErr != nil {
			return lookErr
		}
		if delErr := tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(QuotationTable), quoteIdent(pk)), id).Error; delErr != nil {
			return delErr
		}
		return tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(QuotationItemsTable), quoteIdent(QuotationNoColumn)),
			stringField(head, "qNo")).Error
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

func quotationItems(ctx context.Context, db *gorm.DB, qNos []string) (map[string][]map[string]any, error) {
	grouped := make(map[string][]map[string]any)
	if len(qNos) == 0 {
		return grouped, nil
	}
	rows := make([]map[string]any, 0)
	err := db.WithContext(ctx).Raw(fmt.Sprintf(
		"SELECT * FROM %s WHERE %s IN ? ORDER BY id ASC",
		quoteIdent(QuotationItemsTable), quoteIdent(QuotationNoColumn)), qNos).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		qNo := stringField(r, "qNo")
		qty := decimalField(r, "qty")
		price := decimalField(r, "unitPrice")
		line := decimalField(r, "lineTotal")
		disc := qty.Mul(price).Sub(line)
		if disc.IsNegative() {
			disc = decimal.Zero
		}
		grouped[qNo] = append(grouped[qNo], map[string]any{
			"qNo":       qNo,
			"itemCode":  r["itemCode"],
			"itemName":  r["itemName"],
			"qty":       qty,
			"unitPrice": price,
			"lineTotal": line,
			"discount":  disc.Round(2),
		})
	}
	return grouped, nil
}

// quotationByNumber loads a header by its business number, not the row key.
func quotationByNumber(ctx context.Context, db *gorm.DB, qNo string) (map[string]any, error) {
	rows := make([]map[string]any, 0, 1)
	err := db.WithContext(ctx).Raw(fmt.Sprintf(
		"SELECT * FROM %s WHERE %s = ? LIMIT 1",
		quoteIdent(QuotationTable), quoteIdent(QuotationNoColumn)), qNo).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return rows[0], nil
}

func parseDocDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now()
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now()
}

func stringField(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func decimalField(row map[string]any, key string) decimal.Decimal {
	switch v := row[key].(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case []byte:
		if d, err := decimal.NewFromString(string(v)); err == nil {
			return d
		}
		return decimal.Zero
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}
