package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Transactions.List(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	NewJSONResponse().Body(newTransactionViews(txs)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}

	tx, err := s.deps.Transactions.Create(r.Context(), identity(r).UserID, services.CreateTransactionRequest{
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Type:        p.Get("type"),
		Date:        p.Get("date"),
	})
	if err != nil {
		writeError(w, r, "create_transaction", err)
		return
	}
	s.appMetrics.transactionsCreated.Add(1)

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]any{
			"message":  "Transaction added successfully",
			"category": string(tx.Category),
			"id":       tx.ID,
		}).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), identity(r).UserID, id); err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	s.appMetrics.transactionsDeleted.Add(1)

	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}

// multipartOverhead is the room left in the request body for boundaries and
// part headers around the file itself.
const multipartOverhead = 64 << 10

// handleUpload imports a multipart CSV upload in the "file" field. The size
// limit applies to the file, not the whole request.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tooLarge := ErrorResponse(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("File too large (max %d bytes)", s.maxUploadBytes))
	bodyLimit := s.maxUploadBytes + multipartOverhead
	if r.ContentLength > bodyLimit {
		tooLarge.Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		if isMaxBytesError(err) {
			tooLarge.Write(w)
			return
		}
		BadRequestError("No file provided").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// A part sent without a filename is parsed as a plain value.
		if errors.Is(err, http.ErrMissingFile) && len(r.MultipartForm.Value["file"]) > 0 {
			BadRequestError("No file selected").Write(w)
			return
		}
		BadRequestError("No file provided").Write(w)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		BadRequestError("No file selected").Write(w)
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		BadRequestError("Please upload a CSV file").Write(w)
		return
	}
	if header.Size > s.maxUploadBytes {
		tooLarge.Write(w)
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, "upload", fmt.Errorf("read upload: %w", err))
		return
	}

	userID := identity(r).UserID
	result, err := s.deps.Imports.Import(r.Context(), userID, string(raw))
	if err != nil {
		writeError(w, r, "upload", err)
		return
	}
	s.appMetrics.rowsImported.Add(int64(result.Count))

	log.FromContext(r.Context()).InfoContext(r.Context(), "CSV upload processed",
		log.FieldUserID, userID,
		log.FieldBatchID, result.BatchID,
		log.FieldCount, result.Count,
		"file_name", header.Filename)

	NewJSONResponse().
		Body(map[string]any{
			"message":  fmt.Sprintf("Successfully imported %d transactions", result.Count),
			"imported": result.Count,
		}).
		Write(w)
}
