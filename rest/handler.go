package rest

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/clinic_backend/config"
	"bitbucket.org/mmdatafocus/clinic_backend/documents"
	"bitbucket.org/mmdatafocus/clinic_backend/gateway"
	"bitbucket.org/mmdatafocus/clinic_backend/utils"
)

// RegisterRoutes mounts the catch-all CRUD surface under /api. Path shape is
// /api/<module>/<table>[/<id>[/<action>]]; the physical table name is
// <module>_<table>. Quotations and sale orders route to the composite
// document writer instead of the generic executor.
func RegisterRoutes(r *gin.Engine) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "no route for: "+c.Request.URL.Path)
	})

	api := r.Group("/api")
	api.Use(RequestContextMiddleware())

	api.GET("/:module/:table", listHandler)
	api.POST("/:module/:table", createHandler)
	api.GET("/:module/:table/:id", getHandler)
	api.PUT("/:module/:table/:id", updateHandler)
	api.PATCH("/:module/:table/:id", updateHandler)
	api.DELETE("/:module/:table/:id", deleteHandler)
	api.POST("/:module/:table/:id", postActionHandler)
	api.GET("/:module/:table/:id/:action", getActionHandler)
}

func send(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"ok": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"ok": false, "error": msg})
}

// sendError maps the error taxonomy onto status codes at the single
// dispatch boundary; nothing below this layer writes a response.
func sendError(c *gin.Context, err error) {
	logger := config.GetLogger()

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, gateway.ErrInvalidIdentifier),
		errors.Is(err, gateway.ErrEmptyRecord),
		errors.Is(err, documents.ErrQuotationNotConfirmed),
		errors.As(err, &validationErrs):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrUnknownTable),
		errors.Is(err, utils.ErrorRecordNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		config.LogError(logger, "rest", "sendError", c.FullPath(), c.Request.URL.Path, err)
		fail(c, http.StatusInternalServerError, err.Error())
	}
}

func physicalTable(c *gin.Context) (string, error) {
	module, err := gateway.SanitizeIdentifier(c.Param("module"))
	if err != nil {
		return "", err
	}
	table, err := gateway.SanitizeIdentifier(c.Param("table"))
	if err != nil {
		return "", err
	}
	return module + "_" + table, nil
}

func isQuotation(c *gin.Context) bool {
	return c.Param("module") == "sales" && c.Param("table") == "quotations"
}

func isSaleOrder(c *gin.Context) bool {
	return c.Param("module") == "sales" && c.Param("table") == "orders"
}

func readRecord(c *gin.Context) *gateway.Record {
	contentType := c.GetHeader("Content-Type")
	if strings.Contains(strings.ToLower(contentType), "multipart/form-data") {
		rec := gateway.NewRecord()
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			return rec
		}
		for key, vals := range c.Request.MultipartForm.Value {
			if len(vals) > 0 {
				rec.Set(key, vals[0])
			}
		}
		return rec
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return gateway.NewRecord()
	}
	return gateway.DecodeBody(contentType, body)
}

func readBody(c *gin.Context) []byte {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil
	}
	return body
}

func intQuery(c *gin.Context, name string, def int) int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

var reservedListParams = map[string]bool{
	"q": true, "search": true, "limit": true, "offset": true,
	"order": true, "from": true, "to": true,
	"page": true, "size": true,
}

func listHandler(c *gin.Context) {
	ctx := c.Request.Context()

	if isQuotation(c) {
		rows, err := documents.ListQuotations(ctx, c.Query("status"), c.Query("withItems") == "1")
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, rows)
		return
	}
	if isSaleOrder(c) {
		limit := intQuery(c, "limit", 0)
		offset := intQuery(c, "offset", 0)
		if size := intQuery(c, "size", 0); size > 0 {
			limit = size
			if page := intQuery(c, "page", 0); page > 1 {
				offset = (page - 1) * size
			}
		}
		rows, err := documents.ListSaleOrders(ctx, saleOrderSearch(c), limit, offset)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, rows)
		return
	}

	table, err := physicalTable(c)
	if err != nil {
		sendError(c, err)
		return
	}

	search := c.Query("q")
	if search == "" {
		search = c.Query("search")
	}
	filters := make(map[string]string)
	for name, vals := range c.Request.URL.Query() {
		if reservedListParams[name] || len(vals) == 0 {
			continue
		}
		filters[name] = vals[0]
	}

	result, err := gateway.List(ctx, table, gateway.ListQuery{
		Search:  search,
		Limit:   intQuery(c, "limit", 0),
		Offset:  intQuery(c, "offset", 0),
		Order:   c.Query("order"),
		Filters: filters,
		From:    c.Query("from"),
		To:      c.Query("to"),
	})
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": result.Rows, "total": result.Total})
}

func saleOrderSearch(c *gin.Context) string {
	if s := c.Query("search"); s != "" {
		return s
	}
	return c.Query("q")
}

func getHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if id == "columns" {
		table, err := physicalTable(c)
		if err != nil {
			sendError(c, err)
			return
		}
		cols, err := gateway.TableColumns(ctx, table)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, cols)
		return
	}

	if isSaleOrder(c) && id == "next-no" {
		soNo, err := documents.NextSaleOrderNumber(ctx, c.Query("date"))
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, gin.H{"soNo": soNo})
		return
	}

	if isQuotation(c) {
		row, err := documents.GetQuotation(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, row)
		return
	}
	if isSaleOrder(c) {
		row, err := documents.GetSaleOrder(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, row)
		return
	}

	table, err := physicalTable(c)
	if err != nil {
		sendError(c, err)
		return
	}
	row, err := gateway.GetOne(ctx, table, id)
	if err != nil {
		sendError(c, err)
		return
	}
	send(c, http.StatusOK, row)
}

func createHandler(c *gin.Context) {
	ctx := c.Request.Context()

	if isQuotation(c) {
		head, err := documents.CreateQuotation(ctx, documents.DecodeNewQuotation(readBody(c)))
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusCreated, head)
		return
	}
	if isSaleOrder(c) {
		head, err := documents.CreateSaleOrder(ctx, documents.DecodeNewSaleOrder(readBody(c)))
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusCreated, head)
		return
	}

	table, err := physicalTable(c)
	if err != nil {
		sendError(c, err)
		return
	}
	row, err := gateway.Create(ctx, table, readRecord(c))
	if err != nil {
		sendError(c, err)
		return
	}
	send(c, http.StatusCreated, row)
}

func updateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if isQuotation(c) {
		head, err := documents.ReplaceQuotation(ctx, id, documents.DecodeNewQuotation(readBody(c)))
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, head)
		return
	}
	if isSaleOrder(c) {
		head, err := documents.ReplaceSaleOrder(ctx, id, documents.DecodeNewSaleOrder(readBody(c)))
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, head)
		return
	}

	table, err := physicalTable(c)
	if err != nil {
		sendError(c, err)
		return
	}
	row, err := gateway.Update(ctx, table, id, readRecord(c))
	if err != nil {
		sendError(c, err)
		return
	}
	send(c, http.StatusOK, row)
}

func deleteHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if isQuotation(c) {
		head, err := documents.DeleteQuotation(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, head)
		return
	}
	if isSaleOrder(c) {
		head, err := documents.DeleteSaleOrder(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, head)
		return
	}

	table, err := physicalTable(c)
	if err != nil {
		sendError(c, err)
		return
	}
	row, err := gateway.Remove(ctx, table, id)
	if err != nil {
		sendError(c, err)
		return
	}
	send(c, http.StatusOK, row)
}

// postActionHandler serves POST /api/<module>/<table>/<action>:
// "bulk" repeats create over an array; sale orders add "from-quotation".
func postActionHandler(c *gin.Context) {
	ctx := c.Request.Context()
	action := c.Param("id")

	switch {
	case action == "bulk":
		bulkHandler(c)
	case isSaleOrder(c) && action == "from-quotation":
		var input documents.FromQuotationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			fail(c, http.StatusBadRequest, "qNo required")
			return
		}
		head, err := documents.CreateSaleOrderFromQuotation(ctx, &input)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusCreated, head)
	default:
		fail(c, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func bulkHandler(c *gin.Context) {
	ctx := c.Request.Context()
	table, err := physicalTable(c)
	if err != nil {
		sendError(c, err)
		return
	}

	var payloads []map[string]any
	if err := c.ShouldBindJSON(&payloads); err != nil {
		fail(c, http.StatusBadRequest, "array body required")
		return
	}
	recs := make([]*gateway.Record, 0, len(payloads))
	for _, p := range payloads {
		rec := gateway.NewRecord()
		for k, v := range p {
			rec.Set(k, v)
		}
		recs = append(recs, rec)
	}

	rows, err := gateway.BulkCreate(ctx, table, recs)
	if err != nil {
		sendError(c, err)
		return
	}
	send(c, http.StatusCreated, rows)
}

// getActionHandler serves GET /api/<module>/<table>/<id>/<action>:
// quotation export and the customer credit lookup.
func getActionHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	switch {
	case isQuotation(c) && c.Param("action") == "export":
		f, filename, err := documents.ExportQuotationXLSX(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "rest", "getActionHandler", "f.Write", filename, err)
		}
	case c.Param("module") == "sales" && c.Param("table") == "customers" && c.Param("action") == "credit":
		terms, err := documents.CustomerCredit(ctx, id)
		if err != nil {
			sendError(c, err)
			return
		}
		send(c, http.StatusOK, terms)
	default:
		fail(c, http.StatusNotFound, "no route for: "+c.Request.URL.Path)
	}
}
