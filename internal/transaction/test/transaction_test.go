package transaction_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tuanle2204/BookSwap-Group07/internal/transaction"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
)

func setupTransactionTest(t *testing.T) func() {
	tmpDir := t.TempDir()
	if err := database.InitDatabase(tmpDir + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	logger.Init(logger.INFO, false, nil)
	gin.SetMode(gin.TestMode)
	return func() { database.Close() }
}

// newRouter mounts the transaction routes behind a stub auth middleware
// acting as the given user.
func newRouter(asUser string) *gin.Engine {
	handler := transaction.NewHandler()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", asUser)
		c.Next()
	})
	router.POST("/transactions", handler.CreateTransaction)
	router.GET("/transactions/:id", handler.GetTransactionByID)
	router.PUT("/transactions/:id/status", handler.UpdateStatus)
	return router
}

func addUser(t *testing.T, id string) {
	t.Helper()
	_, err := database.DB.Exec(
		`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'hash')`,
		id, id, id+"@example.com")
	if err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
}

func addBook(t *testing.T, id, ownerID, status string) {
	t.Helper()
	_, err := database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status) VALUES (?, 'Book', ?, ?)`, id, ownerID, status)
	if err != nil {
		t.Fatalf("insert book %s: %v", id, err)
	}
}

func addTx(t *testing.T, id, initiatorID, receiverID, bookID, status string) {
	t.Helper()
	_, err := database.DB.Exec(
		`INSERT INTO transactions (id, initiator_id, receiver_id, requested_book_id, status) VALUES (?, ?, ?, ?, ?)`,
		id, initiatorID, receiverID, bookID, status)
	if err != nil {
		t.Fatalf("insert transaction %s: %v", id, err)
	}
}

func putStatus(router *gin.Engine, txID, status string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"status": status})
	req := httptest.NewRequest("PUT", "/transactions/"+txID+"/status", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func userPoints(t *testing.T, id string) int {
	t.Helper()
	var points int
	if err := database.DB.QueryRow(`SELECT points FROM users WHERE id = ?`, id).Scan(&points); err != nil {
		t.Fatalf("load points for %s: %v", id, err)
	}
	return points
}

func TestCompleteAwardsPointsExactlyOnce(t *testing.T) {
	cleanup := setupTransactionTest(t)
	defer cleanup()

	addUser(t, "alice")
	addUser(t, "bob")
	addBook(t, "bk1", "bob", "pending")
	addTx(t, "tx1", "alice", "bob", "bk1", "accepted")

	resp := putStatus(newRouter("alice"), "tx1", "completed")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if got := userPoints(t, "alice"); got != 10 {
		t.Errorf("initiator points = %d, want 10", got)
	}
	if got := userPoints(t, "bob"); got != 1 {
		t.Errorf("receiver points = %d, want 1", got)
	}

	var status string
	var completedAt interface{}
	database.DB.QueryRow(`SELECT status, completed_at FROM transactions WHERE id = 'tx1'`).Scan(&status, &completedAt)
	if status != "completed" {
		t.Errorf("transaction status = %s, want completed", status)
	}
	if completedAt == nil {
		t.Error("completed_at was not set")
	}

	var bookStatus string
	database.DB.QueryRow(`SELECT status FROM books WHERE id = 'bk1'`).Scan(&bookStatus)
	if bookStatus != "exchanged" {
		t.Errorf("book status = %s, want exchanged", bookStatus)
	}

	// Repeat completion must not award again, from either side
	resp = putStatus(newRouter("bob"), "tx1", "completed")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat completion, got %d", resp.Code)
	}
	if got := userPoints(t, "alice"); got != 10 {
		t.Errorf("initiator points after repeat = %d, want 10", got)
	}
	if got := userPoints(t, "bob"); got != 1 {
		t.Errorf("receiver points after repeat = %d, want 1", got)
	}
}

func TestOnlyReceiverAcceptsOrRejects(t *testing.T) {
	cleanup := setupTransactionTest(t)
	defer cleanup()

	addUser(t, "alice")
	addUser(t, "bob")
	addBook(t, "bk1", "bob", "available")
	addTx(t, "tx1", "alice", "bob", "bk1", "pending")

	// The initiator may not accept their own request
	resp := putStatus(newRouter("alice"), "tx1", "accepted")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for initiator accept, got %d", resp.Code)
	}

	resp = putStatus(newRouter("bob"), "tx1", "accepted")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for receiver accept, got %d: %s", resp.Code, resp.Body.String())
	}

	// Accepting reserves the requested book
	var bookStatus string
	database.DB.QueryRow(`SELECT status FROM books WHERE id = 'bk1'`).Scan(&bookStatus)
	if bookStatus != "pending" {
		t.Errorf("book status = %s, want pending after accept", bookStatus)
	}
}

func TestOnlyInitiatorCancels(t *testing.T) {
	cleanup := setupTransactionTest(t)
	defer cleanup()

	addUser(t, "alice")
	addUser(t, "bob")
	addBook(t, "bk1", "bob", "available")
	addTx(t, "tx1", "alice", "bob", "bk1", "pending")

	resp := putStatus(newRouter("bob"), "tx1", "cancelled")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for receiver cancel, got %d", resp.Code)
	}

	resp = putStatus(newRouter("alice"), "tx1", "cancelled")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for initiator cancel, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRejectReleasesReservedBook(t *testing.T) {
	cleanup := setupTransactionTest(t)
	defer cleanup()

	addUser(t, "alice")
	addUser(t, "bob")
	addBook(t, "bk1", "bob", "pending")
	addTx(t, "tx1", "alice", "bob", "bk1", "pending")

	resp := putStatus(newRouter("bob"), "tx1", "rejected")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var bookStatus string
	database.DB.QueryRow(`SELECT status FROM books WHERE id = 'bk1'`).Scan(&bookStatus)
	if bookStatus != "available" {
		t.Errorf("book status = %s, want available after reject", bookStatus)
	}
}

func TestCompleteRequiresAcceptedState(t *testing.T) {
	cleanup := setupTransactionTest(t)
	defer cleanup()

	addUser(t, "alice")
	addUser(t, "bob")
	addBook(t, "bk1", "bob", "available")
	addTx(t, "tx1", "alice", "bob", "bk1", "pending")

	resp := putStatus(newRouter("alice"), "tx1", "completed")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 completing a pending transaction, got %d", resp.Code)
	}
	if got := userPoints(t, "alice"); got != 0 {
		t.Errorf("points awarded on invalid completion: %d", got)
	}
}

func TestCreateTransactionValidations(t *testing.T) {
	cleanup := setupTransactionTest(t)
	defer cleanup()

	addUser(t, "alice")
	addUser(t, "bob")
	addUser(t, "carol")
	addBook(t, "own", "alice", "available")
	addBook(t, "taken", "bob", "pending")
	addBook(t, "ok", "bob", "available")
	addBook(t, "carols", "carol", "available")
	database.DB.Exec(`INSERT INTO blocked_users (user_id, blocked_id) VALUES ('carol', 'alice')`)

	router := newRouter("alice")
	post := func(bookID string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]interface{}{"requested_book_id": bookID})
		req := httptest.NewRequest("POST", "/transactions", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if resp := post("own"); resp.Code != http.StatusBadRequest {
		t.Errorf("requesting own book: expected 400, got %d", resp.Code)
	}
	if resp := post("taken"); resp.Code != http.StatusConflict {
		t.Errorf("requesting unavailable book: expected 409, got %d", resp.Code)
	}
	if resp := post("carols"); resp.Code != http.StatusForbidden {
		t.Errorf("requesting from a blocking user: expected 403, got %d", resp.Code)
	}
	if resp := post("missing"); resp.Code != http.StatusNotFound {
		t.Errorf("requesting missing book: expected 404, got %d", resp.Code)
	}

	resp := post("ok")
	if resp.Code != http.StatusCreated {
		t.Fatalf("valid request: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.Status != "pending" {
		t.Errorf("new transaction status = %s, want pending", created.Status)
	}
}

func TestTransactionVisibleToParticipantsOnly(t *testing.T) {
	cleanup := setupTransactionTest(t)
	defer cleanup()

	addUser(t, "alice")
	addUser(t, "bob")
	addUser(t, "eve")
	addBook(t, "bk1", "bob", "available")
	addTx(t, "tx1", "alice", "bob", "bk1", "pending")

	req := httptest.NewRequest("GET", "/transactions/tx1", nil)
	resp := httptest.NewRecorder()
	newRouter("eve").ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	newRouter("bob").ServeHTTP(resp, httptest.NewRequest("GET", "/transactions/tx1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for participant, got %d", resp.Code)
	}
}
