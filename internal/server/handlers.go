package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/termsheet-validator/internal/chat"
	"github.com/joseph-ayodele/termsheet-validator/internal/common"
	"github.com/joseph-ayodele/termsheet-validator/internal/extract"
	"github.com/joseph-ayodele/termsheet-validator/internal/fields"
	"github.com/joseph-ayodele/termsheet-validator/internal/logger"
	"github.com/joseph-ayodele/termsheet-validator/internal/pipeline"
	"github.com/joseph-ayodele/termsheet-validator/internal/report"
	"github.com/joseph-ayodele/termsheet-validator/internal/schema"
	"github.com/joseph-ayodele/termsheet-validator/internal/workpool"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// runValidation runs the pipeline on the worker pool and maps failures to
// AppErrors. The upload is released once the worker is done with it, which may
// be after the request has given up.
func (s *Server) runValidation(ctx context.Context, up *upload) (pipeline.ValidationResult, error) {
	// Submit only panics before the job reaches a worker, so nothing else holds up.
	defer func() {
		if r := recover(); r != nil {
			s.release(up)
			panic(r)
		}
	}()
	res, err := workpool.Submit(ctx, s.pool, func(ctx context.Context) (pipeline.ValidationResult, error) {
		return s.validator.Validate(ctx, up.doc)
	}, func() { s.release(up) })
	if err == nil {
		return res, nil
	}

	var ufe *extract.UnsupportedFormatError
	switch {
	case errors.As(err, &ufe):
		return res, common.NewAppError(common.CodeUnsupportedFormat, "File type not allowed", err)
	case errors.Is(err, workpool.ErrClosed), errors.Is(err, workpool.ErrQueueFull),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return res, common.NewAppError(common.CodeUnavailable, "Validation unavailable, try again later", err)
	default:
		return res, common.NewAppError(common.CodeInternal, err.Error(), err)
	}
}

// validateDetailed handles POST /api/term-sheets/validate.
func (s *Server) validateDetailed(c *gin.Context) {
	up, aerr := s.receiveUpload(c)
	if aerr != nil {
		s.abort(c, aerr)
		return
	}

	res, err := s.runValidation(c.Request.Context(), up)
	if err != nil {
		logger.WithContext(c.Request.Context(), s.logger).Error("validation failed", "filename", up.doc.Name, "error", err)
		s.abort(c, common.AsAppError(err))
		return
	}
	c.JSON(http.StatusOK, detailedResponse{
		Status:            "success",
		Filename:          up.doc.Name,
		ValidationResults: toDetailed(res),
	})
}

// validateSummary handles POST /api/validate-term-sheet. Once a file has been
// accepted it always answers 200, substituting a synthetic warning on failure.
func (s *Server) validateSummary(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), s.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("validate-term-sheet panicked", "panic", r)
			c.JSON(http.StatusOK, unexpectedFallback(r))
		}
	}()

	up, aerr := s.receiveUpload(c)
	if aerr != nil {
		s.abort(c, aerr)
		return
	}

	res, err := s.runValidation(c.Request.Context(), up)
	if err != nil {
		log.Warn("validation failed, returning warning", "filename", up.doc.Name, "error", err)
		c.JSON(http.StatusOK, processingFallback(errors.Unwrap(err)))
		return
	}
	c.JSON(http.StatusOK, toSummary(res))
}

// evaluate handles POST /api/term-sheets/evaluate with a JSON field map.
func (s *Server) evaluate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		if isTooLarge(err) {
			s.abort(c, common.NewAppError(common.CodeTooLarge, "Request too large", err))
			return
		}
		s.abort(c, common.InvalidInput("Could not read request body"))
		return
	}
	if err := schema.FieldMap.ValidateJSON(body); err != nil {
		s.abort(c, common.InvalidInput(err.Error()))
		return
	}
	var m fields.FieldMap
	if err := json.Unmarshal(body, &m); err != nil {
		s.abort(c, common.InvalidInput(err.Error()))
		return
	}

	res, err := s.validator.Evaluate(m)
	if err != nil {
		s.abort(c, common.NewAppError(common.CodeInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, detailedResponse{Status: "success", ValidationResults: toDetailed(res)})
}

func (s *Server) listHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": s.history.List()})
}

func (s *Server) exportHistory(c *gin.Context) {
	data, err := report.XLSX("History", report.FromHistory(s.history.List()), s.logger)
	if err != nil {
		s.abort(c, common.NewAppError(common.CodeInternal, "Export failed", err))
		return
	}
	name := "termsheet-history-" + s.now().UTC().Format("20060102-150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (s *Server) listRules(c *gin.Context) {
	set := s.rules.RuleSet()
	lo, hi := set.PrincipalBounds()
	c.JSON(http.StatusOK, gin.H{
		"rules":    s.rules.Rules(),
		"approved": set.Lists(),
		"principal_limits": gin.H{
			"min": lo.InexactFloat64(),
			"max": hi.InexactFloat64(),
		},
	})
}

type detailedChatRequest struct {
	Message           string          `json:"message"`
	TermSheetData     fields.FieldMap `json:"term_sheet_data"`
	ValidationResults *chat.Results   `json:"validation_results"`
	ChatHistory       []chat.Turn     `json:"chat_history"`
}

type summaryChatRequest struct {
	Message           string        `json:"message"`
	TermSheetData     *chat.Summary `json:"termSheetData"`
	ValidationResults *chat.Results `json:"validation_results"`
}

type chatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// decodeChat checks the message is there, validates against sch and decodes into dst.
func decodeChat(c *gin.Context, sch *schema.Schema, dst any, missing string) *common.AppError {
	body, err := c.GetRawData()
	if err != nil {
		return common.InvalidInput(missing)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return common.InvalidInput(missing)
	}
	if msg, _ := raw["message"].(string); msg == "" {
		return common.InvalidInput(missing)
	}
	if err := sch.Validate(raw); err != nil {
		return common.InvalidInput(err.Error())
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return common.InvalidInput(err.Error())
	}
	return nil
}

// chatDetailed handles POST /api/term-sheets/chat.
func (s *Server) chatDetailed(c *gin.Context) {
	var req detailedChatRequest
	if aerr := decodeChat(c, schema.DetailedChat, &req, "No message provided"); aerr != nil {
		s.abort(c, aerr)
		return
	}
	reply := chat.Detailed(req.Message, chat.Context{
		Fields:  req.TermSheetData,
		Results: req.ValidationResults,
		History: req.ChatHistory,
	})
	logger.WithContext(c.Request.Context(), s.logger).Debug("chat reply", "intent", reply.Intent, "history_len", len(req.ChatHistory))
	c.JSON(http.StatusOK, chatResponse{Response: reply.Text, Timestamp: s.now().Format(time.RFC3339)})
}

// chatSummary handles POST /api/chat. The context is termSheetData, or is
// derived from validation_results when only those are sent.
func (s *Server) chatSummary(c *gin.Context) {
	const invalid = "Invalid request. Message and termSheetData are required."
	var req summaryChatRequest
	if aerr := decodeChat(c, schema.SummaryChat, &req, invalid); aerr != nil {
		s.abort(c, aerr)
		return
	}
	var summary chat.Summary
	switch {
	case req.TermSheetData != nil:
		summary = *req.TermSheetData
	case req.ValidationResults != nil:
		summary = summaryFromResults(req.ValidationResults)
	default:
		s.abort(c, common.InvalidInput(invalid))
		return
	}
	reply := chat.SummaryReply(req.Message, summary)
	logger.WithContext(c.Request.Context(), s.logger).Debug("chat reply", "intent", reply.Intent)
	c.JSON(http.StatusOK, chatResponse{Response: reply.Text, Timestamp: s.now().Format(time.RFC3339)})
}
