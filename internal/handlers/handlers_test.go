package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/creatorflow/creatorflow/auth"
	"github.com/creatorflow/creatorflow/internal/models"
	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Project{},
		&models.Task{},
		&models.ChecklistItem{},
		&models.TaskComment{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoiceEmail{},
		&models.InvoiceSequence{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, name string) models.User {
	t.Helper()
	user := models.User{Email: email, Password: "x", Name: name}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedClient(t *testing.T, db *gorm.DB, userID uint) models.Client {
	t.Helper()
	client := models.Client{
		UserID:           userID,
		Name:             "Acme",
		Email:            "billing@acme.test",
		Status:           models.ClientStatusActive,
		Currency:         "USD",
		PaymentTermsDays: 30,
	}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("failed to seed client: %v", err)
	}
	return client
}

func seedProject(t *testing.T, db *gorm.DB, userID, clientID uint) models.Project {
	t.Helper()
	project := models.Project{
		UserID:   userID,
		ClientID: clientID,
		Title:    "Website redesign",
		Status:   models.ProjectStatusActive,
		Priority: models.PriorityMedium,
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return project
}

func seedTask(t *testing.T, db *gorm.DB, userID, projectID uint) models.Task {
	t.Helper()
	task := models.Task{
		UserID:    userID,
		ProjectID: projectID,
		Title:     "Write copy",
		Status:    models.TaskStatusTodo,
		Priority:  models.PriorityMedium,
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	return task
}

func seedInvoice(t *testing.T, db *gorm.DB, userID, clientID uint, status models.InvoiceStatus, number string) models.Invoice {
	t.Helper()
	now := time.Now()
	inv := models.Invoice{
		UserID:    userID,
		ClientID:  clientID,
		Number:    number,
		Status:    status,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, 30),
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	return inv
}

// newRequest builds an authenticated JSON request; id > 0 also injects the
// chi {id} route parameter.
func newRequest(t *testing.T, method, target string, userID, id uint, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	ctx := r.Context()
	if userID > 0 {
		ctx = auth.WithUserID(ctx, userID)
	}
	if id > 0 {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", strconv.FormatUint(uint64(id), 10))
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// errorCode extracts the "error" field of an error response body.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decodeBody(t, rec, &body)
	code, _ := body["error"].(string)
	return code
}
