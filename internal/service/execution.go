package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"
)

const MessageEmployeeDeleted string = "employee deleted"

func getCorrelationId(request *http.Request) string {
	if correlationId := request.Header.Get(data.HeaderCorrelationId); correlationId != "" {
		return correlationId
	}
	return internal.GenerateId()
}

func requestCtx(request *http.Request) context.Context {
	return internal.CtxWithCorrelationId(request.Context(),
		getCorrelationId(request))
}

func idFromPath(pathVariables map[string]string) string {
	return pathVariables[data.PathID]
}

func searchFromRequest(request *http.Request) (data.EmployeeSearch, error) {
	var search data.EmployeeSearch

	if err := request.ParseForm(); err != nil {
		return search, data.NewValidationError("malformed query: %s", err)
	}
	search.FromParams(request.Form)
	return search, nil
}

// handleResponse writes either the error as {message} with the status its
// kind maps to, or the item as json with the given status.
func (s *service) handleResponse(ctx context.Context, writer http.ResponseWriter, err error, statusCode int, item any) {
	var bytes []byte

	writer.Header().Set(data.HeaderCorrelationId, internal.CorrelationIdFromCtx(ctx))
	if err == nil && statusCode != http.StatusNoContent {
		bytes, err = json.Marshal(item)
	}
	if err != nil {
		statusCode = data.StatusCode(err)
		if statusCode == http.StatusInternalServerError {
			s.Error(ctx, "error while handling request: %s", err)
		}
		bytes, err = json.Marshal(&data.Message{Message: err.Error()})
		if err != nil {
			fmt.Printf("error handling response: %s\n", err)
			return
		}
	}
	if statusCode == http.StatusNoContent {
		writer.WriteHeader(statusCode)
		return
	}
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	if _, err := writer.Write(bytes); err != nil {
		s.Error(ctx, "error while writing response: %s", err)
	}
}
