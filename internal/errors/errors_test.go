package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestServiceError_Is(t *testing.T) {
	err := fmt.Errorf("submit: %w", Unauthenticated())

	if !Is(err, Unauthenticated()) {
		t.Error("Is() = false for same code, want true")
	}
	if Is(err, Forbidden("")) {
		t.Error("Is() = true for different code, want false")
	}
}

func TestGetServiceError(t *testing.T) {
	if GetServiceError(nil) != nil {
		t.Error("GetServiceError(nil) should be nil")
	}
	if GetServiceError(stderrors.New("plain")) != nil {
		t.Error("GetServiceError(plain) should be nil")
	}

	wrapped := fmt.Errorf("outer: %w", NotFound("order", "o-1"))
	se := GetServiceError(wrapped)
	if se == nil {
		t.Fatal("GetServiceError(wrapped) = nil")
	}
	if se.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want %d", se.HTTPStatus, http.StatusNotFound)
	}
	if se.Details["id"] != "o-1" {
		t.Errorf("Details[id] = %v, want o-1", se.Details["id"])
	}
}

func TestWithDetails_DoesNotMutate(t *testing.T) {
	base := InvalidInput("bad")
	withAxis := base.WithDetails("axis", "size")

	if len(base.Details) != 0 {
		t.Errorf("base details = %v, want empty", base.Details)
	}
	if withAxis.Details["axis"] != "size" {
		t.Errorf("Details[axis] = %v, want size", withAxis.Details["axis"])
	}
}

func TestIncompleteSelection(t *testing.T) {
	err := IncompleteSelection("size", []string{"size", "leg"})

	if err.Code != CodeIncompleteSelection {
		t.Errorf("Code = %s, want %s", err.Code, CodeIncompleteSelection)
	}
	if err.Details["axis"] != "size" {
		t.Errorf("axis = %v, want size", err.Details["axis"])
	}
	missing, ok := err.Details["missing"].([]string)
	if !ok || len(missing) != 2 {
		t.Errorf("missing = %v, want [size leg]", err.Details["missing"])
	}
}

func TestSubmissionFailed_CarriesGatewayDetail(t *testing.T) {
	gw := Unavailable("backend down", stderrors.New("dial tcp: refused"))
	err := SubmissionFailed(gw)

	if !IsCode(err, CodeSubmissionFailed) {
		t.Error("IsCode(SUBMISSION_FAILED) = false")
	}
	if err.Details["gateway_code"] != string(CodeServiceUnavailable) {
		t.Errorf("gateway_code = %v, want %s", err.Details["gateway_code"], CodeServiceUnavailable)
	}
	if !stderrors.Is(err, gw) {
		t.Error("SubmissionFailed should wrap the gateway error")
	}
}
