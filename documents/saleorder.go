package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/gateway"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SaleOrderTable      = "sales_saleorders"
	SaleOrderItemsTable = "sales_saleorderitems"
	SaleOrderPrefix     = "SO"
	SaleOrderNoColumn   = "soNo"
	saleOrderNoWidth    = 4

	CustomersTable = "sales_customers"

	StatusOpen = "Open"

	PaymentTypeFull    = "FULL"
	PaymentTypeDeposit = "DEPOSIT"
)

// ErrQuotationNotConfirmed rejects deriving a sale order from a quotation
// that has not reached Confirmed.
var ErrQuotationNotConfirmed = errors.New("quotation is not confirmed")

// A placeholder number from the order form; treated as absent.
var tmpNumberPattern = regexp.MustCompile(`(?i)-TMP$`)

type NewSaleOrder struct {
	SoNo             string           `json:"soNo"`
	SoDate           string           `json:"soDate"`
	Status           string           `json:"status"`
	CustomerCode     string           `json:"customerCode"`
	BillTo           string           `json:"billTo"`
	ShipTo           string           `json:"shipTo"`
	PaymentTerm      string           `json:"paymentTerm"`
	Note             string           `json:"note"`
	DeliveryDate     string           `json:"deliveryDate"`
	DueDate          string           `json:"dueDate"`
	PaymentType      string           `json:"paymentType"`
	DepositAmount    decimal.Decimal  `json:"depositAmount"`
	DepositPercent   *decimal.Decimal `json:"depositPercent"`
	InstallmentCount *int             `json:"installmentCount"`
	PaymentPlan      json.RawMessage  `json:"paymentPlan"`
	RefQuotationNo   string           `json:"refQuotationNo"`
	Items            ItemList         `json:"items"`
}

func DecodeNewSaleOrder(body []byte) *NewSaleOrder {
	var input NewSaleOrder
	_ = json.Unmarshal(body, &input)
	return &input
}

type CustomerCreditTerms struct {
	Code        string          `json:"code"`
	CreditDays  int             `json:"creditDays"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
	PaymentType string          `json:"paymentType"`
}

// CustomerCredit looks up credit terms by customer code, returning lenient
// defaults (zero days, cash) for unknown customers.
func CustomerCredit(ctx context.Context, code string) (*CustomerCreditTerms, error) {
	db := config.GetDB()
	terms := &CustomerCreditTerms{Code: code, PaymentType: "cash"}
	rows := make([]map[string]any, 0, 1)
	err := db.WithContext(ctx).Raw(fmt.Sprintf(
		"SELECT creditDays, creditLimit, paymentType FROM %s WHERE code = ? LIMIT 1",
		quoteIdent(CustomersTable)), code).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return terms, nil
	}
	terms.CreditDays = int(decimalField(rows[0], "creditDays").IntPart())
	terms.CreditLimit = decimalField(rows[0], "creditLimit")
	if pt := stringField(rows[0], "paymentType"); pt != "" {
		terms.PaymentType = pt
	}
	return terms, nil
}

func customerCreditDays(ctx context.Context, tx *gorm.DB, code string) int {
	if strings.TrimSpace(code) == "" {
		return 0
	}
	rows := make([]map[string]any, 0, 1)
	err := tx.WithContext(ctx).Raw(fmt.Sprintf(
		"SELECT creditDays FROM %s WHERE code = ? LIMIT 1", quoteIdent(CustomersTable)), code).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return 0
	}
	return int(decimalField(rows[0], "creditDays").IntPart())
}

// paymentFields normalizes the payment plan: FULL pays the grand total in
// one go; DEPOSIT derives the amount from the percent when only the percent
// was supplied.
func paymentFields(input *NewSaleOrder, grand decimal.Decimal) (paymentType string, depositAmount, totalPaid, balance decimal.Decimal) {
	paymentType = strings.ToUpper(strings.TrimSpace(input.PaymentType))
	if paymentType != PaymentTypeDeposit {
		paymentType = PaymentTypeFull
	}

	if paymentType == PaymentTypeDeposit {
		depositAmount = input.DepositAmount
		if !depositAmount.IsPositive() && input.DepositPercent != nil && input.DepositPercent.IsPositive() {
			depositAmount = grand.Mul(*input.DepositPercent).Div(decimal.NewFromInt(100)).Round(2)
		}
		totalPaid = depositAmount
	} else {
		depositAmount = decimal.Zero
		totalPaid = grand
	}

	balance = grand.Sub(totalPaid).Round(2)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return paymentType, depositAmount, totalPaid, balance
}

func dueDateFor(ctx context.Context, tx *gorm.DB, input *NewSaleOrder) string {
	deliveryDate := strings.TrimSpace(input.DeliveryDate)
	if deliveryDate == "" {
		return strings.TrimSpace(input.DueDate)
	}
	dt, err := time.Parse("2006-01-02", deliveryDate)
	if err != nil {
		return strings.TrimSpace(input.DueDate)
	}
	if days := customerCreditDays(ctx, tx, input.CustomerCode); days > 0 {
		dt = dt.AddDate(0, 0, days)
	}
	return dt.Format("2006-01-02")
}

func saleOrderHeadRecord(ctx context.Context, tx *gorm.DB, soNo string, input *NewSaleOrder) *gateway.Record {
	before, discount, grand := computeTotals(input.Items)
	paymentType, depositAmount, totalPaid, balance := paymentFields(input, grand)

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = StatusOpen
	}

	rec := gateway.NewRecord()
	rec.Set("soNo", soNo)
	rec.Set("soDate", orderDate(input.SoDate))
	rec.Set("status", status)
	rec.Set("customerCode", input.CustomerCode)
	rec.Set("billTo", input.BillTo)
	rec.Set("shipTo", input.ShipTo)
	rec.Set("paymentTerm", input.PaymentTerm)
	rec.Set("totalBeforeDiscount", before)
	rec.Set("discount", discount)
	rec.Set("grandTotal", grand)
	rec.Set("note", input.Note)
	if deliveryDate := strings.TrimSpace(input.DeliveryDate); deliveryDate != "" {
		rec.Set("deliveryDate", deliveryDate)
	} else {
		rec.Set("deliveryDate", nil)
	}
	if dueDate := dueDateFor(ctx, tx, input); dueDate != "" {
		rec.Set("dueDate", dueDate)
	} else {
		rec.Set("dueDate", nil)
	}
	rec.Set("paymentType", paymentType)
	rec.Set("depositAmount", depositAmount)
	if input.DepositPercent != nil {
		rec.Set("depositPercent", *input.DepositPercent)
	} else {
		rec.Set("depositPercent", nil)
	}
	if input.InstallmentCount != nil {
		rec.Set("installmentCount", *input.InstallmentCount)
	} else {
		rec.Set("installmentCount", nil)
	}
	rec.Set("totalPaid", totalPaid)
	rec.Set("balance", balance)
	if len(input.PaymentPlan) > 0 {
		rec.Set("paymentPlan", string(input.PaymentPlan))
	} else {
		rec.Set("paymentPlan", nil)
	}
	if strings.TrimSpace(input.RefQuotationNo) != "" {
		rec.Set("refQuotationNo", input.RefQuotationNo)
	}
	return rec
}

func insertSaleOrderItems(ctx context.Context, tx *gorm.DB, soNo string, items []ItemInput) error {
	for _, it := range items {
		rec := gateway.NewRecord()
		rec.Set("soNo", soNo)
		rec.Set("itemCode", it.ItemCode)
		rec.Set("itemName", it.ItemName)
		rec.Set("qty", it.Qty)
		rec.Set("uom", it.Uom)
		rec.Set("unitPrice", it.UnitPrice)
		rec.Set("lineTotal", lineTotal(it))
		rec.Set("remark", it.Remark)
		rec.Set("CreateDate", gateway.RawNow)
		stmt, err := gateway.BuildInsert(SaleOrderItemsTable, rec)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(stmt.SQL, stmt.Bind...).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateSaleOrder writes the order header and items in one transaction under
// the same numbering discipline as quotations.
func CreateSaleOrder(ctx context.Context, input *NewSaleOrder) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "CreateSaleOrder")
	defer span.End()

	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, SaleOrderTable)
	if err != nil {
		return nil, err
	}
	docDate := parseDocDate(input.SoDate)

	var head map[string]any
	err = withNumberLock(ctx, SaleOrderTable, func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			if lockErr := gateway.AcquireTableLock(tx, SaleOrderTable); lockErr != nil {
				return lockErr
			}
			defer gateway.ReleaseTableLock(tx, SaleOrderTable)

			soNo := strings.TrimSpace(input.SoNo)
			if tmpNumberPattern.MatchString(soNo) {
				soNo = ""
			}
			if soNo != "" {
				taken, exErr := documentNumberExists(ctx, tx, SaleOrderTable, SaleOrderNoColumn, soNo)
				if exErr != nil {
					return exErr
				}
				if taken {
					soNo = ""
				}
			}
			if soNo == "" {
				var genErr error
				soNo, genErr = NextDocumentNumber(ctx, tx, SaleOrderTable, SaleOrderNoColumn, SaleOrderPrefix, docDate, saleOrderNoWidth)
				if genErr != nil {
					return genErr
				}
			}

			rec := saleOrderHeadRecord(ctx, tx, soNo, input)
			gateway.EnrichOnCreate(ctx, cols, rec)

			var insErr error
			head, insErr = gateway.InsertReturning(ctx, tx, SaleOrderTable, cols, rec)
			if gateway.IsDuplicateEntry(insErr) {
				soNo, insErr = NextDocumentNumber(ctx, tx, SaleOrderTable, SaleOrderNoColumn, SaleOrderPrefix, docDate, saleOrderNoWidth)
				if insErr != nil {
					return insErr
				}
				rec.Set("soNo", soNo)
				head, insErr = gateway.InsertReturning(ctx, tx, SaleOrderTable, cols, rec)
			}
			if insErr != nil {
				return insErr
			}
			return insertSaleOrderItems(ctx, tx, soNo, input.Items)
		})
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// ReplaceSaleOrder follows the quotation contract: header update plus full
// line replacement keyed by the business number.
func ReplaceSaleOrder(ctx context.Context, id string, input *NewSaleOrder) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "ReplaceSaleOrder")
	defer span.End()

	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, SaleOrderTable)
	if err != nil {
		return nil, err
	}
	pk := gateway.PrimaryKeyOf(cols)

	var head map[string]any
	err = db.Transaction(func(tx *gorm.DB) error {
		rec := saleOrderHeadRecord(ctx, tx, strings.TrimSpace(input.SoNo), input)
		if strings.TrimSpace(input.SoNo) == "" {
			// Keep the stored number; it is the line-item back-reference.
			rec.Delete("soNo")
		}
		gateway.EnrichOnUpdate(ctx, cols, rec)

		stmt, buildErr := gateway.BuildUpdate(SaleOrderTable, rec, pk)
		if buildErr != nil {
			return buildErr
		}
		if execErr := tx.WithContext(ctx).Exec(stmt.SQL, append(stmt.Bind, id)...).Error; execErr != nil {
			return execErr
		}
		var lookErr error
		head, lookErr = gateway.RowByKey(ctx, tx, SaleOrderTable, pk, id)
		if lookErr != nil {
			return lookErr
		}

		soNo := stringField(head, "soNo")
		if delErr := tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(SaleOrderItemsTable), quoteIdent(SaleOrderNoColumn)), soNo).Error; delErr != nil {
			return delErr
		}
		return insertSaleOrderItems(ctx, tx, soNo, input.Items)
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

func GetSaleOrder(ctx context.Context, id string) (map[string]any, error) {
	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, SaleOrderTable)
	if err != nil {
		return nil, err
	}
	head, err := gateway.RowByKey(ctx, db, SaleOrderTable, gateway.PrimaryKeyOf(cols), id)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0)
	err = db.WithContext(ctx).Raw(fmt.Sprintf(
		"SELECT * FROM %s WHERE %s = ? ORDER BY id ASC",
		quoteIdent(SaleOrderItemsTable), quoteIdent(SaleOrderNoColumn)),
		stringField(head, "soNo")).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	head["items"] = items
	return head, nil
}

// ListSaleOrders searches soNo and customerCode, newest first.
func ListSaleOrders(ctx context.Context, search string, limit, offset int) ([]map[string]any, error) {
	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, SaleOrderTable)
	if err != nil {
		return nil, err
	}
	pk := gateway.PrimaryKeyOf(cols)

	if limit < 1 {
		limit = gateway.DefaultListLimit
	}
	if limit > gateway.MaxListLimit {
		limit = gateway.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	sql := fmt.Sprintf("SELECT * FROM %s", quoteIdent(SaleOrderTable))
	var bind []any
	if term := strings.TrimSpace(search); term != "" {
		sql += fmt.Sprintf(" WHERE %s LIKE ? OR %s LIKE ?", quoteIdent("soNo"), quoteIdent("customerCode"))
		bind = append(bind, "%"+term+"%", "%"+term+"%")
	}
	sql += fmt.Sprintf(" ORDER BY %s DESC LIMIT %d OFFSET %d", quoteIdent(pk), limit, offset)

	rows := make([]map[string]any, 0)
	if err := db.WithContext(ctx).Raw(sql, bind...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func DeleteSaleOrder(ctx context.Context, id string) (map[string]any, error) {
	db := config.GetDB()
	cols, err := gateway.TableColumns(ctx, SaleOrderTable)
	if err != nil {
		return nil, err
	}
	pk := gateway.PrimaryKeyOf(cols)

	var head map[string]any
	err = db.Transaction(func(tx *gorm.DB) error {
		var lookErr error
		head, lookErr = gateway.RowByKey(ctx, tx, SaleOrderTable, pk, id)
		if lookErr != nil {
			return lookErr
		}
		if delErr := tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(SaleOrderTable), quoteIdent(pk)), id).Error; delErr != nil {
			return delErr
		}
		return tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(SaleOrderItemsTable), quoteIdent(SaleOrderNoColumn)),
			stringField(head, "soNo")).Error
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// NextSaleOrderNumber previews the next number for a date without reserving
// it; the order form shows it before save.
func NextSaleOrderNumber(ctx context.Context, dateStr string) (string, error) {
	db := config.GetDB()
	return NextDocumentNumber(ctx, db, SaleOrderTable, SaleOrderNoColumn, SaleOrderPrefix, parseDocDate(dateStr), saleOrderNoWidth)
}

type FromQuotationInput struct {
	QNo string `json:"qNo" validate:"required"`
}

// CreateSaleOrderFromQuotation derives an Open sale order from a Confirmed
// quotation: customer snapshot, totals and line items carry over, and the
// order keeps the source number in refQuotationNo. The quotation itself is
// not mutated.
func CreateSaleOrderFromQuotation(ctx context.Context, input *FromQuotationInput) (map[string]any, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	db := config.GetDB()

	quote, err := quotationByNumber(ctx, db, input.QNo)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(stringField(quote, "status"), StatusConfirmed) {
		return nil, ErrQuotationNotConfirmed
	}

	grouped, err := quotationItems(ctx, db, []string{input.QNo})
	if err != nil {
		return nil, err
	}

	items := make(ItemList, 0)
	for _, it := range grouped[input.QNo] {
		items = append(items, ItemInput{
			ItemCode:  stringField(it, "itemCode"),
			ItemName:  stringField(it, "itemName"),
			Qty:       decimalField(it, "qty"),
			UnitPrice: decimalField(it, "unitPrice"),
			Discount:  decimalField(it, "discount"),
		})
	}

	firstName := stringField(quote, "customerFirstName")
	lastName := stringField(quote, "customerLastName")
	customerName := strings.TrimSpace(firstName + " " + lastName)
	order := &NewSaleOrder{
		CustomerCode:   stringField(quote, "customerCode"),
		BillTo:         customerName,
		ShipTo:         customerName,
		Status:         StatusOpen,
		Note:           stringField(quote, "note"),
		RefQuotationNo: input.QNo,
		Items:          items,
	}
	return CreateSaleOrder(ctx, order)
}

func orderDate(s string) string {
	if d := strings.TrimSpace(s); d != "" {
		return d
	}
	return time.Now().Format("2006-01-02")
}
