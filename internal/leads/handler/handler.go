package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"buyerlead_backend/internal/leads/schema"
	"buyerlead_backend/internal/leads/service"
	"buyerlead_backend/internal/leads/transport"
	"buyerlead_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"

	// maxImportFileBytes caps the uploaded CSV size well above anything a
	// 200-row batch can produce.
	maxImportFileBytes = 2 << 20
)

type Handler struct {
	svc    *service.Service
	schema *schema.Schema
}

func New(svc *service.Service, sch *schema.Schema) *Handler {
	return &Handler{svc: svc, schema: sch}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/export", h.Export)
	rg.POST("/import", h.Import)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/history", h.History)
}

func actorFrom(c *gin.Context) (service.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return service.Actor{}, false
	}
	return service.Actor{ID: identity.UserID(), IsAdmin: identity.IsAdmin()}, true
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), actor, id)) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) List(c *gin.Context) {
	req := h.schema.ParseListQuery(c.Request.URL.Query())

	page, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, page)
}

func (h *Handler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.svc.History(c.Request.Context(), id, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": entries})
}

// Import accepts a multipart CSV upload under the "file" field, parses it
// into raw rows, and hands the batch to the all-or-nothing pipeline. A batch
// with rejected rows responds 422 with per-row diagnostics.
func (h *Handler) Import(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "csv file is required", nil)
		return
	}
	if fileHeader.Size > maxImportFileBytes {
		httpkit.Error(c, http.StatusBadRequest, "csv file too large", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read csv file", nil)
		return
	}
	defer file.Close()

	rows, err := parseCSVRows(file)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	result, err := h.svc.Import(c.Request.Context(), actor, rows)
	if httpkit.HandleError(c, err) {
		return
	}

	if len(result.Rejected) > 0 {
		httpkit.JSON(c, http.StatusUnprocessableEntity, result)
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Export streams the current filtered set as CSV, same filter semantics as
// the list endpoint.
func (h *Handler) Export(c *gin.Context) {
	req := h.schema.ParseListQuery(c.Request.URL.Query())

	records, err := h.svc.Export(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="buyer-leads.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(service.ExportHeader)
	for _, record := range records {
		_ = w.Write(record)
	}
	w.Flush()
}

// csvColumns maps header names to setters on the raw row. Unknown columns
// are ignored so exports with extra columns re-import cleanly.
var csvColumns = map[string]func(*transport.LeadCSVRow, string){
	"fullName":     func(r *transport.LeadCSVRow, v string) { r.FullName = v },
	"email":        func(r *transport.LeadCSVRow, v string) { r.Email = v },
	"phone":        func(r *transport.LeadCSVRow, v string) { r.Phone = v },
	"city":         func(r *transport.LeadCSVRow, v string) { r.City = v },
	"propertyType": func(r *transport.LeadCSVRow, v string) { r.PropertyType = v },
	"bhk":          func(r *transport.LeadCSVRow, v string) { r.BHK = v },
	"purpose":      func(r *transport.LeadCSVRow, v string) { r.Purpose = v },
	"budgetMin":    func(r *transport.LeadCSVRow, v string) { r.BudgetMin = v },
	"budgetMax":    func(r *transport.LeadCSVRow, v string) { r.BudgetMax = v },
	"timeline":     func(r *transport.LeadCSVRow, v string) { r.Timeline = v },
	"source":       func(r *transport.LeadCSVRow, v string) { r.Source = v },
	"notes":        func(r *transport.LeadCSVRow, v string) { r.Notes = v },
	"tags":         func(r *transport.LeadCSVRow, v string) { r.Tags = v },
	"status":       func(r *transport.LeadCSVRow, v string) { r.Status = v },
}

func parseCSVRows(r io.Reader) ([]transport.LeadCSVRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("csv file is empty or malformed")
	}

	setters := make([]func(*transport.LeadCSVRow, string), len(header))
	known := 0
	for i, name := range header {
		if i == 0 {
			// Spreadsheet exports often prepend a UTF-8 BOM.
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if setter, ok := csvColumns[name]; ok {
			setters[i] = setter
			known++
		}
	}
	if known == 0 {
		return nil, errors.New("csv header has no recognized columns")
	}

	rows := make([]transport.LeadCSVRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.New("csv file is malformed")
		}

		var row transport.LeadCSVRow
		for i, value := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, value)
			}
		}
		rows = append(rows, row)

		// One row past the batch cap is enough for the pipeline to reject
		// the batch; no point parsing the rest.
		if len(rows) > service.MaxImportRows {
			break
		}
	}

	return rows, nil
}
