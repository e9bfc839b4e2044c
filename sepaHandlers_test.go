package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/dojoworks/dojo_backend/models"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeErrorResponse(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	writeError(c, err)
	var body map[string]interface{}
	if jsonErr := json.Unmarshal(rec.Body.Bytes(), &body); jsonErr != nil {
		t.Fatalf("response is not JSON: %v", jsonErr)
	}
	return rec.Code, body
}

func TestWriteErrorLeadTimeTooShortIsBadRequest(t *testing.T) {
	err := models.NewStateError(models.ErrCodeLeadTimeTooShort, "batch", 0,
		"execution date 2026-03-03 is 1 business days away; recurring collections need 2")
	status, body := writeErrorResponse(t, err)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if body["code"] != models.ErrCodeLeadTimeTooShort {
		t.Errorf("code = %v, want %s", body["code"], models.ErrCodeLeadTimeTooShort)
	}
}

func TestWriteErrorIllegalTransitionIsConflict(t *testing.T) {
	err := models.NewStateError(models.ErrCodeIllegalTransition, "batch", 7,
		"cannot move from executed to created")
	status, body := writeErrorResponse(t, err)
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want %d", status, http.StatusConflict)
	}
	if body["code"] != models.ErrCodeIllegalTransition {
		t.Errorf("code = %v, want %s", body["code"], models.ErrCodeIllegalTransition)
	}
	if body["entity_id"] != float64(7) {
		t.Errorf("entity_id = %v, want 7", body["entity_id"])
	}
}

func TestWriteErrorValidationIsBadRequest(t *testing.T) {
	err := models.NewValidationError(models.ErrCodeInvalidIban, "debtor_iban", "checksum mismatch")
	status, body := writeErrorResponse(t, err)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if body["field"] != "debtor_iban" {
		t.Errorf("field = %v, want debtor_iban", body["field"])
	}
}

func TestWriteErrorRecordNotFound(t *testing.T) {
	status, _ := writeErrorResponse(t, utils.ErrorRecordNotFound)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", status, http.StatusNotFound)
	}
}
