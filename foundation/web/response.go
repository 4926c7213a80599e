package web

import (
	"context"
	"encoding/json"
	"net/http"
)

// Respond converts a Go value to JSON and sends it to the client.
func Respond(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {

	// Set the status code for the request logger middleware. If the context
	// is missing this value, request the service to be shutdown gracefully.
	if err := SetStatusCode(ctx, statusCode); err != nil {
		return NewShutdownError(err.Error())
	}

	// If there is nothing to marshal then set status code and return.
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	// Convert the response value to JSON.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	// Set the content type and headers once we know marshaling has succeeded.
	w.Header().Set("Content-Type", "application/json")

	// Write the status code to the response.
	w.WriteHeader(statusCode)

	// Send the result back to the client.
	if _, err := w.Write(jsonData); err != nil {
		return err
	}

	return nil
}

// RespondText sends raw bytes to the client with the specified content type.
// Used for the plain-text and CSV export renderings.
func RespondText(ctx context.Context, w http.ResponseWriter, data []byte, contentType string, statusCode int) error {
	if err := SetStatusCode(ctx, statusCode); err != nil {
		return NewShutdownError(err.Error())
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		return err
	}

	return nil
}
