package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-sync-service/internal/app"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

// importFormField is the multipart field of an uploaded import file.
const importFormField = "file"

// QuoteHandler exposes the dispatcher intents over HTTP. Every route is a
// thin wrapper: bind, dispatch, render.
type QuoteHandler struct {
	dispatcher *app.Dispatcher
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(dispatcher *app.Dispatcher) *QuoteHandler {
	return &QuoteHandler{dispatcher: dispatcher}
}

func (h *QuoteHandler) dispatch(c *gin.Context, intent app.Intent, req app.Request) (any, bool) {
	req.Session = middleware.GetSessionID(c)

	result, err := h.dispatcher.Dispatch(c.Request.Context(), intent, req)
	if err != nil {
		RespondWithError(c, err)
		return nil, false
	}

	return result, true
}

// ListQuotes handles GET /api/v1/quotes.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var page dto.PaginationRequest
	if err := dto.BindQueryAndValidate(c, &page); err != nil {
		RespondWithBindError(c, err)
		return
	}

	result, ok := h.dispatch(c, app.IntentList, app.Request{})
	if !ok {
		return
	}

	resp, err := dto.Paginate(dto.FromQuotes(result.([]domain.Quote)), page)
	if err != nil {
		RespondWithErrorCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RandomQuote handles GET /api/v1/quotes/random. An empty selection is a
// 200 with available false.
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	result, ok := h.dispatch(c, app.IntentShowNext, app.Request{})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// AddQuote handles POST /api/v1/quotes. Blank input leaves the store
// unchanged and answers 200 with added false.
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		RespondWithBindError(c, err)
		return
	}

	result, ok := h.dispatch(c, app.IntentAddQuote, app.Request{Text: req.Text, Category: req.Category})
	if !ok {
		return
	}

	status := http.StatusOK
	if added, _ := result.(app.AddResult); added.Added {
		status = http.StatusCreated
	}

	render(c, status, result)
}

// ImportQuotes handles POST /api/v1/quotes/import. The document is either the
// raw request body or a multipart upload in the "file" field.
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	payload, err := importPayload(c)
	if err != nil {
		RespondWithErrorCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	result, ok := h.dispatch(c, app.IntentImport, app.Request{Payload: payload})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

func importPayload(c *gin.Context) ([]byte, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}

		return data, nil
	}

	fh, err := c.FormFile(importFormField)
	if err != nil {
		return nil, fmt.Errorf("missing %q upload: %w", importFormField, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	return data, nil
}

// ExportQuotes handles GET /api/v1/quotes/export as a file download.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	result, ok := h.dispatch(c, app.IntentExport, app.Request{})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// ResetQuotes handles POST /api/v1/quotes/reset.
func (h *QuoteHandler) ResetQuotes(c *gin.Context) {
	result, ok := h.dispatch(c, app.IntentReset, app.Request{})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// Categories handles GET /api/v1/categories.
func (h *QuoteHandler) Categories(c *gin.Context) {
	result, ok := h.dispatch(c, app.IntentCategories, app.Request{})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// SetFilter handles PUT /api/v1/filter. Unknown categories fall back to "all".
func (h *QuoteHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		RespondWithBindError(c, err)
		return
	}

	result, ok := h.dispatch(c, app.IntentFilterChanged, app.Request{Category: req.Category})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// SyncNow handles POST /api/v1/sync.
func (h *QuoteHandler) SyncNow(c *gin.Context) {
	var q dto.SyncQuery
	if err := dto.BindQueryAndValidate(c, &q); err != nil {
		RespondWithBindError(c, err)
		return
	}

	result, ok := h.dispatch(c, app.IntentSyncNow, app.Request{Policy: q.Policy})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// Conflicts handles GET /api/v1/sync/conflicts.
func (h *QuoteHandler) Conflicts(c *gin.Context) {
	result, ok := h.dispatch(c, app.IntentConflicts, app.Request{})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// ResolveConflict handles POST /api/v1/sync/conflicts/:index/resolve.
func (h *QuoteHandler) ResolveConflict(c *gin.Context) {
	var param dto.IndexParam
	if err := c.ShouldBindUri(&param); err != nil {
		RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "conflict index must be a number")
		return
	}

	if err := dto.Validate(param); err != nil {
		RespondWithBindError(c, err)
		return
	}

	var req dto.ResolveRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		RespondWithBindError(c, err)
		return
	}

	result, ok := h.dispatch(c, app.IntentResolveConflict, app.Request{Index: param.Index, Resolution: req.Resolution})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// LastViewed handles GET /api/v1/session/last-viewed.
func (h *QuoteHandler) LastViewed(c *gin.Context) {
	result, ok := h.dispatch(c, app.IntentLastViewed, app.Request{})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// Notices handles GET /api/v1/notices. Each notice is delivered once.
func (h *QuoteHandler) Notices(c *gin.Context) {
	result, ok := h.dispatch(c, app.IntentNotices, app.Request{})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// Intent handles POST /api/v1/intents/:intent, the generic entry point for
// scripted clients. The body is optional.
func (h *QuoteHandler) Intent(c *gin.Context) {
	var req dto.IntentRequest
	if c.Request.ContentLength != 0 {
		if err := dto.BindAndValidate(c, &req); err != nil && !errors.Is(err, io.EOF) {
			RespondWithBindError(c, err)
			return
		}
	}

	result, ok := h.dispatch(c, app.Intent(c.Param("intent")), app.Request{
		Category:   req.Category,
		Text:       req.Text,
		Payload:    req.Payload,
		Policy:     req.Policy,
		Index:      req.Index,
		Resolution: req.Resolution,
	})
	if !ok {
		return
	}

	render(c, http.StatusOK, result)
}

// ListIntents handles GET /api/v1/intents.
func (h *QuoteHandler) ListIntents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"intents": h.dispatcher.Intents()})
}

// render writes a dispatcher result in its wire form.
func render(c *gin.Context, status int, result any) {
	switch v := result.(type) {
	case app.ShowResult:
		c.JSON(status, toShowResponse(v))
	case app.AddResult:
		resp := gin.H{"added": v.Added}
		if v.Quote != nil {
			resp["quote"] = dto.FromQuote(*v.Quote)
		}
		c.JSON(status, resp)
	case []domain.Quote:
		c.JSON(status, dto.FromQuotes(v))
	case []domain.Conflict:
		c.JSON(status, dto.FromConflicts(v))
	case domain.Quote:
		c.JSON(status, dto.FromQuote(v))
	case app.ExportResult:
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.Filename))
		c.Data(status, "application/json; charset=utf-8", v.Data)
	case app.SyncReport:
		c.JSON(syncStatus(v), v)
	default:
		c.JSON(status, v)
	}
}

func toShowResponse(r app.ShowResult) dto.ShowResponse {
	resp := dto.ShowResponse{Available: r.Available, Message: r.Message, Filter: r.Filter}
	if r.Quote != nil {
		q := dto.FromQuote(*r.Quote)
		resp.Quote = &q
	}

	return resp
}

// syncStatus keeps the report as the body of failed runs and signals the
// failure kind through the status code.
func syncStatus(r app.SyncReport) int {
	switch {
	case r.Status != app.SyncStatusFailed:
		return http.StatusOK
	case r.Failure == app.FailureFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RegisterQuoteRoutes registers the quote routes on the given router group.
// admin guards the destructive routes.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup, syncLimit, admin gin.HandlerFunc) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.POST("/import", h.ImportQuotes)
	quotes.GET("/export", h.ExportQuotes)
	quotes.POST("/reset", admin, h.ResetQuotes)

	rg.GET("/categories", h.Categories)
	rg.PUT("/filter", h.SetFilter)

	rg.POST("/sync", syncLimit, h.SyncNow)
	rg.GET("/sync/conflicts", h.Conflicts)
	rg.POST("/sync/conflicts/:index/resolve", admin, h.ResolveConflict)

	rg.GET("/session/last-viewed", h.LastViewed)
	rg.GET("/notices", h.Notices)

	rg.GET("/intents", h.ListIntents)
	rg.POST("/intents/:intent",
		forIntents(syncLimit, app.IntentSyncNow),
		forIntents(admin, app.IntentReset, app.IntentResolveConflict),
		h.Intent,
	)
}

// forIntents applies mw only when the :intent path segment is one of intents,
// so the generic route carries the same guards as the dedicated ones.
func forIntents(mw gin.HandlerFunc, intents ...app.Intent) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(intents, app.Intent(c.Param("intent"))) {
			mw(c)
			return
		}

		c.Next()
	}
}

// ServeSnapshot serves the bundled server snapshot, the default quote source.
func ServeSnapshot(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.File(path)
	}
}
