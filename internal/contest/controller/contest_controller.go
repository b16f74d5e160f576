package controller

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/algorithm-ninja/task-wizard/internal/contest/service"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/response"
)

// ContestController exposes the contest operations over HTTP.
type ContestController struct {
	contestService *service.ContestService
}

func NewContestController(contestService *service.ContestService) *ContestController {
	return &ContestController{contestService: contestService}
}

// RegisterRoutes mounts the API under the given router group.
func (h *ContestController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/auth", h.Auth)
	api.GET("/problems", h.ListProblems)
	api.GET("/problems/:name/material", h.Material)
	api.POST("/problems/:name/submissions", h.Submit)
	api.GET("/problems/:name/submissions", h.ListSubmissions)
	api.GET("/submissions/:id", h.Submission)
	api.GET("/evaluations/:id/status", h.EvaluationStatus)

	admin := api.Group("/admin")
	admin.PUT("/problems/:name", h.ImportProblem)
	admin.DELETE("/problems/:name", h.DeleteProblem)
	admin.PUT("/users/:id", h.AddUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.POST("/submissions/:id/regrade", h.Regrade)
	admin.POST("/regrade", h.RegradeBatch)
}

type authRequest struct {
	Token string `json:"token" binding:"required"`
}

// Auth exchanges a login token for a JWT.
func (h *ContestController) Auth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	token, err := h.contestService.Auth(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, token)
}

// ListProblems returns the contest problems.
func (h *ContestController) ListProblems(c *gin.Context) {
	problems, err := h.contestService.ListProblems(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problems)
}

// Material returns the presentation material of a problem.
func (h *ContestController) Material(c *gin.Context) {
	m, err := h.contestService.MaterialOf(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, m)
}

type submitFile struct {
	FieldID string `json:"field_id" binding:"required"`
	TypeID  string `json:"type_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	// Content is base64-encoded in JSON.
	Content []byte `json:"content" binding:"required"`
}

type submitRequest struct {
	UserID string       `json:"user_id" binding:"required"`
	Files  []submitFile `json:"files" binding:"required"`
}

// Submit stores a submission and starts its evaluation.
func (h *ContestController) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	files := make([]service.FileInput, 0, len(req.Files))
	for _, file := range req.Files {
		files = append(files, service.FileInput{
			FieldID: file.FieldID,
			TypeID:  file.TypeID,
			Name:    file.Name,
			Content: file.Content,
		})
	}
	submission, err := h.contestService.Submit(c.Request.Context(),
		authContextOf(c), req.UserID, c.Param("name"), files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submission)
}

// ListSubmissions lists the caller's submissions for a problem.
func (h *ContestController) ListSubmissions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.BadRequest(c, "user_id is required")
		return
	}
	submissions, err := h.contestService.SubmissionsOf(c.Request.Context(),
		authContextOf(c), userID, c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, submissions)
}

// Submission returns a submission with its newest evaluation and score.
func (h *ContestController) Submission(c *gin.Context) {
	view, err := h.contestService.EvaluationOf(c.Request.Context(),
		authContextOf(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// EvaluationStatus returns the status of an evaluation.
func (h *ContestController) EvaluationStatus(c *gin.Context) {
	status, err := h.contestService.EvaluationStatus(c.Request.Context(),
		authContextOf(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"status": status})
}

// ImportProblem uploads a task archive and registers the problem.
// The archive travels as the multipart file field "archive".
func (h *ContestController) ImportProblem(c *gin.Context) {
	fileHeader, err := c.FormFile("archive")
	if err != nil {
		response.BadRequest(c, "archive file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "archive file is unreadable")
		return
	}
	defer file.Close()
	archive, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(c, "archive file is unreadable")
		return
	}

	problem, err := h.contestService.ImportProblem(c.Request.Context(),
		authContextOf(c), c.Param("name"), archive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problem)
}

// DeleteProblem removes a problem.
func (h *ContestController) DeleteProblem(c *gin.Context) {
	err := h.contestService.DeleteProblem(c.Request.Context(),
		authContextOf(c), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

type addUserRequest struct {
	DisplayName string `json:"display_name"`
	Secret      string `json:"secret" binding:"required"`
}

// AddUser registers a participant.
func (h *ContestController) AddUser(c *gin.Context) {
	var req addUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	err := h.contestService.AddUser(c.Request.Context(),
		authContextOf(c), c.Param("id"), req.DisplayName, req.Secret)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteUser removes a participant.
func (h *ContestController) DeleteUser(c *gin.Context) {
	err := h.contestService.DeleteUser(c.Request.Context(),
		authContextOf(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Regrade starts a fresh evaluation of a submission.
func (h *ContestController) Regrade(c *gin.Context) {
	evals, err := h.contestService.Regrade(c.Request.Context(),
		authContextOf(c), []string{c.Param("id")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, evals[0])
}

type regradeRequest struct {
	SubmissionIDs []string `json:"submission_ids" binding:"required"`
}

// RegradeBatch starts fresh evaluations for a set of submissions.
func (h *ContestController) RegradeBatch(c *gin.Context) {
	var req regradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	evals, err := h.contestService.Regrade(c.Request.Context(),
		authContextOf(c), req.SubmissionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, evals)
}
