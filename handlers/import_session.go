package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"catalogsync-backend/dtos"
	"catalogsync-backend/mapper"
	"catalogsync-backend/matcher"
	"catalogsync-backend/models"
	"catalogsync-backend/parser"
	"catalogsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// maxUploadBytes caps a single catalog file upload.
	maxUploadBytes = 32 << 20
	// maxRowsPerImport caps how many rows one session will hold.
	maxRowsPerImport = 50000
	itemBatchSize    = 100
)

// ImportHandler owns the import session lifecycle from upload to execution.
type ImportHandler struct {
	DB       *gorm.DB
	Parsers  *parser.Registry
	Analyzer mapper.Analyzer
	Matcher  *matcher.Matcher
}

func NewImportHandler(db *gorm.DB, parsers *parser.Registry, analyzer mapper.Analyzer, m *matcher.Matcher) *ImportHandler {
	return &ImportHandler{DB: db, Parsers: parsers, Analyzer: analyzer, Matcher: m}
}

// CreateSession accepts a catalog file upload, parses it, and stores one item
// per row. A parse failure still returns the session, terminally failed, so
// the client can inspect the error message.
func (h *ImportHandler) CreateSession(c *gin.Context) {
	merchantID := c.MustGet("merchant_id").(uuid.UUID)
	userID := c.MustGet("user_id").(uuid.UUID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file upload is required"})
		return
	}
	if err := utils.ValidateFileUpload(fileHeader); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format, err := h.Parsers.DetectFormat(fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file format"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	session := models.ImportSession{
		MerchantID:  merchantID,
		CreatedByID: userID,
		Filename:    fileHeader.Filename,
		Format:      format,
		Status:      models.SessionStatusPending,
	}
	if err := h.DB.Create(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import session"})
		return
	}

	if err := session.Transition(h.DB, models.SessionStatusParsing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start parsing"})
		return
	}

	result, err := h.Parsers.Parse(data, fileHeader.Filename, parser.Options{MaxRows: maxRowsPerImport})
	if err != nil {
		log.Printf("session %s: parse failed: %v", session.ID, err)
		if failErr := session.Fail(h.DB, err.Error()); failErr != nil {
			log.Printf("session %s: could not record parse failure: %v", session.ID, failErr)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "session": session})
		return
	}

	items := make([]models.ImportItem, 0, len(result.Rows))
	for i, row := range result.Rows {
		item := models.ImportItem{
			SessionID: session.ID,
			RowNumber: i + 1,
			Status:    models.ItemStatusPending,
			Action:    models.ItemActionInsert,
		}
		item.SetRawRow(row)
		items = append(items, item)
	}
	if len(items) > 0 {
		if err := h.DB.CreateInBatches(items, itemBatchSize).Error; err != nil {
			session.Fail(h.DB, "failed to store parsed rows")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store parsed rows"})
			return
		}
	}

	// Column order is lost once rows are stored as objects, so it is kept on
	// the session as a preliminary analysis payload.
	session.TotalRows = len(items)
	session.AnalysisJSON = encodeAnalysis(&dtos.AnalysisResult{DetectedColumns: result.Columns})
	if err := h.DB.Model(&session).Updates(map[string]interface{}{
		"total_rows":    session.TotalRows,
		"analysis_json": session.AnalysisJSON,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}
	if err := session.Transition(h.DB, models.SessionStatusParsed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finish parsing"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session": session,
		"columns": result.Columns,
	})
}

// loadSession fetches a merchant-owned session by path param.
func (h *ImportHandler) loadSession(c *gin.Context) (*models.ImportSession, bool) {
	merchantID := c.MustGet("merchant_id").(uuid.UUID)
	id := c.Param("id")

	var session models.ImportSession
	if err := h.DB.Where("id = ? AND merchant_id = ?", id, merchantID).First(&session).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Import session not found"})
		return nil, false
	}
	return &session, true
}

func (h *ImportHandler) GetSession(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	response := gin.H{"session": session}
	if session.AnalysisJSON != "" {
		response["analysis"] = gin.H{}
		var analysis dtos.AnalysisResult
		if err := decodeAnalysis(session.AnalysisJSON, &analysis); err == nil {
			response["analysis"] = analysis
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *ImportHandler) ListSessions(c *gin.Context) {
	merchantID := c.MustGet("merchant_id").(uuid.UUID)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := h.DB.Model(&models.ImportSession{}).Where("merchant_id = ?", merchantID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var sessions []models.ImportSession
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch import sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func (h *ImportHandler) GetSessionItems(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := h.DB.Model(&models.ImportItem{}).Where("session_id = ?", session.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var items []models.ImportItem
	if err := query.Order("row_number").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": itemViews(items),
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// CancelSession terminally cancels a session. Sessions that are executing or
// already terminal cannot be cancelled.
func (h *ImportHandler) CancelSession(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	if err := session.Transition(h.DB, models.SessionStatusCancelled); err != nil {
		if errors.Is(err, models.ErrInvalidStateTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// itemView is the API shape of an item with the JSON payload columns decoded.
type itemView struct {
	models.ImportItem
	Raw        map[string]string  `json:"raw"`
	Mapped     *dtos.MappedData   `json:"mapped,omitempty"`
	Changes    []dtos.FieldChange `json:"changes,omitempty"`
	Validation []string           `json:"validation_errors,omitempty"`
}

func itemViews(items []models.ImportItem) []itemView {
	views := make([]itemView, 0, len(items))
	for i := range items {
		item := items[i]
		views = append(views, itemView{
			ImportItem: item,
			Raw:        item.RawRow(),
			Mapped:     item.Mapped(),
			Changes:    item.Changes(),
			Validation: item.ValidationErrors(),
		})
	}
	return views
}
