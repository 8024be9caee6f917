package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilderTriggers(t *testing.T) {
	rec := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerTransactionCreated(42).
		TriggerFormReset().
		TriggerSuccessNotification("saved").
		Write(rec)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}
	for _, name := range []string{"transaction:created", "form:reset", "show-notification"} {
		if _, ok := triggers[name]; !ok {
			t.Errorf("missing trigger %q in %s", name, rec.Header().Get("HX-Trigger"))
		}
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(triggers["transaction:created"], &created); err != nil || created.ID != 42 {
		t.Errorf("transaction:created payload = %s, want id 42", triggers["transaction:created"])
	}
}

func TestHTMXResponseBuilderNoTriggers(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusNoContent).Write(rec)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("HX-Trigger") != "" {
		t.Errorf("unexpected HX-Trigger header: %s", rec.Header().Get("HX-Trigger"))
	}
}

func TestHTMXErrorEscapesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	HTMXError(http.StatusUnprocessableEntity, `bad <script>alert("x")</script>`).Write(rec)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>") {
		t.Errorf("body not escaped: %s", body)
	}
	if !strings.Contains(body, `class="error"`) {
		t.Errorf("body missing error wrapper: %s", body)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), "show-notification") {
		t.Error("error response should trigger a notification")
	}
}
