package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAckWritesPlainText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Ack(c, http.StatusOK, true)
	if w.Code != http.StatusOK || w.Body.String() != "success" {
		t.Fatalf("unexpected ack: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	AbortAck(c, http.StatusBadRequest)
	if w.Code != http.StatusBadRequest || w.Body.String() != "fail" || !c.IsAborted() {
		t.Fatalf("unexpected abort ack: %d %q", w.Code, w.Body.String())
	}
}

func TestErrorAttachesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")
	NotFound(c, "not found")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"request_id":"req-1"`) {
		t.Fatalf("request id missing: %s", w.Body.String())
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	appErr := WrapError(CodeInternal, "internal", base).WithStatus(http.StatusServiceUnavailable)
	if !errors.Is(appErr, base) || appErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("unexpected app error: %+v", appErr)
	}
	if appErr.Error() != "internal: boom" {
		t.Fatalf("unexpected message: %s", appErr.Error())
	}
}
