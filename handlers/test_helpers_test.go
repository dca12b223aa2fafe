package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"catalogsync-backend/mapper"
	"catalogsync-backend/matcher"
	"catalogsync-backend/middleware"
	"catalogsync-backend/models"
	"catalogsync-backend/parser"
	"catalogsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")

	var err error
	testDB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	// Limit to 1 open connection to prevent SQLite concurrent access issues
	// with in-memory databases.
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)

	// Create tables using raw SQLite-compatible SQL instead of AutoMigrate,
	// because the GORM model tags use PostgreSQL-specific defaults like gen_random_uuid().
	if err := createSQLiteTables(testDB); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}

	code := m.Run()
	os.Exit(code)
}

// freshDB returns a clean database for each test by deleting all rows.
func freshDB() *gorm.DB {
	testDB.Exec("DELETE FROM import_items")
	testDB.Exec("DELETE FROM import_sessions")
	testDB.Exec("DELETE FROM product_variants")
	testDB.Exec("DELETE FROM products")
	testDB.Exec("DELETE FROM refresh_tokens")
	testDB.Exec("DELETE FROM users")
	return testDB
}

// createSQLiteTables creates all tables with SQLite-compatible DDL.
func createSQLiteTables(db *gorm.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS "users" (
			"id" TEXT PRIMARY KEY,
			"email" TEXT NOT NULL UNIQUE,
			"password" TEXT NOT NULL,
			"name" TEXT,
			"role" TEXT DEFAULT 'merchant',
			"merchant_id" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON "users"("deleted_at")`,
		`CREATE INDEX IF NOT EXISTS idx_users_merchant_id ON "users"("merchant_id")`,

		`CREATE TABLE IF NOT EXISTS "refresh_tokens" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"token" TEXT NOT NULL UNIQUE,
			"expires_at" DATETIME NOT NULL,
			"revoked_at" DATETIME,
			"created_at" DATETIME,
			CONSTRAINT fk_refresh_tokens_user FOREIGN KEY ("user_id") REFERENCES "users"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON "refresh_tokens"("user_id")`,

		`CREATE TABLE IF NOT EXISTS "products" (
			"id" TEXT PRIMARY KEY,
			"merchant_id" TEXT NOT NULL,
			"title" TEXT NOT NULL,
			"short_description" TEXT,
			"long_description" TEXT,
			"price" INTEGER DEFAULT 0,
			"currency" TEXT DEFAULT 'USD',
			"image_url" TEXT,
			"status" TEXT DEFAULT 'active',
			"brand" TEXT,
			"category" TEXT,
			"tags" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_deleted_at ON "products"("deleted_at")`,
		`CREATE INDEX IF NOT EXISTS idx_products_merchant_id ON "products"("merchant_id")`,

		`CREATE TABLE IF NOT EXISTS "product_variants" (
			"id" TEXT PRIMARY KEY,
			"product_id" TEXT NOT NULL,
			"merchant_id" TEXT NOT NULL,
			"sku" TEXT,
			"barcode" TEXT,
			"title" TEXT,
			"price" INTEGER DEFAULT 0,
			"compare_at_price" INTEGER,
			"inventory_quantity" INTEGER DEFAULT 0,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"deleted_at" DATETIME,
			CONSTRAINT fk_product_variants_product FOREIGN KEY ("product_id") REFERENCES "products"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_product_variants_deleted_at ON "product_variants"("deleted_at")`,
		`CREATE INDEX IF NOT EXISTS idx_product_variants_product_id ON "product_variants"("product_id")`,
		`CREATE INDEX IF NOT EXISTS idx_product_variants_sku ON "product_variants"("sku")`,
		`CREATE INDEX IF NOT EXISTS idx_product_variants_barcode ON "product_variants"("barcode")`,

		`CREATE TABLE IF NOT EXISTS "import_sessions" (
			"id" TEXT PRIMARY KEY,
			"merchant_id" TEXT NOT NULL,
			"created_by_id" TEXT NOT NULL,
			"filename" TEXT NOT NULL,
			"format" TEXT,
			"status" TEXT DEFAULT 'pending',
			"total_rows" INTEGER DEFAULT 0,
			"processed_rows" INTEGER DEFAULT 0,
			"success_count" INTEGER DEFAULT 0,
			"error_count" INTEGER DEFAULT 0,
			"new_count" INTEGER DEFAULT 0,
			"update_count" INTEGER DEFAULT 0,
			"skip_count" INTEGER DEFAULT 0,
			"matched_count" INTEGER DEFAULT 0,
			"conflict_count" INTEGER DEFAULT 0,
			"analysis_json" TEXT,
			"error_message" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			"completed_at" DATETIME,
			"deleted_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_import_sessions_deleted_at ON "import_sessions"("deleted_at")`,
		`CREATE INDEX IF NOT EXISTS idx_import_sessions_merchant_id ON "import_sessions"("merchant_id")`,
		`CREATE INDEX IF NOT EXISTS idx_import_sessions_status ON "import_sessions"("status")`,

		`CREATE TABLE IF NOT EXISTS "import_items" (
			"id" TEXT PRIMARY KEY,
			"session_id" TEXT NOT NULL,
			"row_number" INTEGER NOT NULL,
			"raw_json" TEXT,
			"status" TEXT DEFAULT 'pending',
			"action" TEXT DEFAULT 'insert',
			"mapped_json" TEXT,
			"matched_product_id" TEXT,
			"matched_variant_id" TEXT,
			"matched_by" TEXT,
			"match_confidence" REAL,
			"changes_json" TEXT,
			"validation_json" TEXT,
			"error_message" TEXT,
			"created_product_id" TEXT,
			"created_variant_id" TEXT,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			CONSTRAINT fk_import_items_session FOREIGN KEY ("session_id") REFERENCES "import_sessions"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_import_items_session_id ON "import_items"("session_id")`,
		`CREATE INDEX IF NOT EXISTS idx_import_items_status ON "import_items"("status")`,
	}

	for _, sql := range tables {
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedMerchantUser creates a merchant user and returns it with a valid JWT token.
func seedMerchantUser(db *gorm.DB, email string) (models.User, string) {
	merchantID := uuid.New()
	return seedUserWithMerchant(db, email, "merchant", &merchantID)
}

func seedUserWithMerchant(db *gorm.DB, email, role string, merchantID *uuid.UUID) (models.User, string) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := models.User{
		ID:         uuid.New(),
		Email:      email,
		Password:   string(hashed),
		Name:       "Test User",
		Role:       role,
		MerchantID: merchantID,
	}
	db.Create(&user)

	token, _ := utils.GenerateToken(user.ID, user.Email, user.Role, merchantID)
	return user, token
}

// seedProduct creates a catalog product with one variant.
func seedProduct(db *gorm.DB, merchantID uuid.UUID, title, sku string, price int64) models.Product {
	prod := models.Product{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Title:      title,
		Price:      price,
		Currency:   "USD",
		Status:     "active",
	}
	db.Create(&prod)

	variant := models.ProductVariant{
		ID:                uuid.New(),
		ProductID:         prod.ID,
		MerchantID:        merchantID,
		SKU:               sku,
		Title:             title,
		Price:             price,
		InventoryQuantity: 10,
	}
	db.Create(&variant)

	prod.Variants = []models.ProductVariant{variant}
	return prod
}

// ==================== Router Setup Helpers ====================

// setupAuthRouter sets up routes for auth handler tests.
func setupAuthRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	authHandler := &AuthHandler{DB: db}

	api := r.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.RefreshTokenHandler)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	protected.GET("/auth/profile", authHandler.GetProfile)

	return r
}

// setupProductRouter sets up routes for product handler tests.
func setupProductRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	productHandler := &ProductHandler{DB: db}

	api := r.Group("/api")
	merchant := api.Group("")
	merchant.Use(middleware.AuthMiddleware(), middleware.MerchantMiddleware())
	merchant.GET("/products", productHandler.GetProducts)
	merchant.GET("/products/export", productHandler.ExportProducts)
	merchant.GET("/products/:id", productHandler.GetProduct)

	return r
}

// setupImportRouter sets up routes for import session tests. Column analysis
// runs the deterministic pattern analyzer only.
func setupImportRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	importHandler := NewImportHandler(db, parser.NewRegistry(), mapper.NewPatternAnalyzer(), matcher.NewMatcher(matcher.DefaultConflictPolicy()))

	api := r.Group("/api")
	merchant := api.Group("")
	merchant.Use(middleware.AuthMiddleware(), middleware.MerchantMiddleware())
	merchant.POST("/imports", importHandler.CreateSession)
	merchant.GET("/imports", importHandler.ListSessions)
	merchant.GET("/imports/:id", importHandler.GetSession)
	merchant.POST("/imports/:id/analyze", importHandler.AnalyzeSession)
	merchant.PUT("/imports/:id/mapping", importHandler.UpdateMapping)
	merchant.POST("/imports/:id/match", importHandler.MatchSession)
	merchant.GET("/imports/:id/items", importHandler.GetSessionItems)
	merchant.PATCH("/imports/:id/items/:itemId", importHandler.UpdateItem)
	merchant.POST("/imports/:id/items/:itemId/resolve", importHandler.ResolveConflict)
	merchant.POST("/imports/:id/approve-all", importHandler.ApproveAll)
	merchant.POST("/imports/:id/execute", importHandler.ExecuteSession)
	merchant.POST("/imports/:id/cancel", importHandler.CancelSession)

	return r
}

// ==================== Request Helpers ====================

// jsonRequest creates an HTTP request with JSON body.
func jsonRequest(method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// authRequest creates an HTTP request with JSON body and Authorization header.
func authRequest(method, url string, body interface{}, token string) *http.Request {
	req := jsonRequest(method, url, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// uploadRequest creates a multipart request carrying one catalog file.
func uploadRequest(url, filename string, content []byte, token string) *http.Request {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", "application/octet-stream")

	part, err := writer.CreatePart(h)
	if err != nil {
		panic("failed to create multipart file part: " + err.Error())
	}
	part.Write(content)
	writer.Close()

	req := httptest.NewRequest("POST", url, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// ==================== Response Helpers ====================

// parseResponse reads the response body into a map.
func parseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}
