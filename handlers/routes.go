package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/middleware/ratelimit"
	"github.com/tech-arch1tect/votegate/openapi"
	"github.com/tech-arch1tect/votegate/server"
	"github.com/tech-arch1tect/votegate/services/logging"
	"github.com/tech-arch1tect/votegate/services/metrics"
	"github.com/tech-arch1tect/votegate/services/otp"
	"github.com/tech-arch1tect/votegate/services/votingpass"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	IssuePath      = "/api/otp/issue"
	VerifyPath     = "/api/otp/verify"
	VotingPassPath = "/api/voting-pass"
	HealthPath     = "/healthz"
)

type RouteParams struct {
	fx.In

	Config   *config.Config
	Server   *server.Server
	OTP      *otp.Service
	DB       *gorm.DB
	Logger   *logging.Service
	Limiters *ratelimit.Limiters `optional:"true"`
	Passes   *votingpass.Service `optional:"true"`
	Metrics  *metrics.Service    `optional:"true"`
}

func RegisterRoutes(p RouteParams) {
	e := p.Server.Echo()
	e.HTTPErrorHandler = func(err error, c echo.Context) { HTTPErrorHandler(c, err) }

	if p.Metrics != nil {
		e.Use(p.Metrics.Middleware())
		e.GET(p.Config.Metrics.Path, echo.WrapHandler(p.Metrics.Handler()))
	}

	otpHandler := NewOTPHandler(p.OTP, p.Passes, p.Logger.Named("http"))
	health := NewHealthHandler(p.DB)

	var issueMW, verifyMW []echo.MiddlewareFunc
	if p.Limiters != nil {
		if p.Limiters.Issue != nil {
			issueMW = append(issueMW, p.Limiters.Issue)
		}
		if p.Limiters.Verify != nil {
			verifyMW = append(verifyMW, p.Limiters.Verify)
		}
	}

	e.GET(HealthPath, health.Check)
	e.POST(IssuePath, otpHandler.Issue, issueMW...)
	e.POST(VerifyPath, otpHandler.Verify, verifyMW...)
	if p.Passes != nil {
		e.GET(VotingPassPath, otpHandler.CurrentPass, votingpass.RequirePass(p.Passes))
	}

	doc := APIDocument(p.Config, p.Passes != nil)
	e.GET("/openapi.json", doc.JSONHandler())
	e.GET("/openapi.yaml", doc.YAMLHandler())
}

// APIDocument describes the public endpoints.
func APIDocument(cfg *config.Config, votingPasses bool) *openapi.OpenAPI {
	doc := openapi.New(cfg.App.Name, "1.0.0").
		Description("Issues and verifies one-time codes that gate a voter's access to an election ballot.").
		Tag("otp", "One-time code issue and verification").
		Tag("system", "Operational endpoints")

	rateLimitHeaders := map[string]string{
		"X-RateLimit-Limit":     "Requests allowed per window",
		"X-RateLimit-Remaining": "Requests left in the current window",
		"X-RateLimit-Reset":     "Unix time the window resets",
	}

	doc.Document(http.MethodPost, IssuePath).
		Summary("Issue a one-time code").
		Description("Checks eligibility, stores a fresh code for the voter and election, and emails it to the voter.").
		OperationID("issueOtp").
		Tags("otp").
		Body(IssueRequest{}, "Voter and election identifiers").
		ResponseWithHeaders(http.StatusOK, otp.IssueResult{}, "Code issued", rateLimitHeaders).
		Response(http.StatusBadRequest, ErrorResponse{}, "Invalid input, ineligible voter, unit mismatch or closed election").
		Response(http.StatusNotFound, ErrorResponse{}, "Voter or election not found").
		Response(http.StatusConflict, ErrorResponse{}, "Voter has already voted in this election").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many requests").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Internal error").
		Build()

	doc.Document(http.MethodPost, VerifyPath).
		Summary("Verify a one-time code").
		Description("Consumes a pending code. Each code can be verified once.").
		OperationID("verifyOtp").
		Tags("otp").
		Body(VerifyRequest{}, "Code and, optionally, the voter and election it was issued for").
		ResponseWithHeaders(http.StatusOK, VerifyResponse{}, "Code accepted", rateLimitHeaders).
		Response(http.StatusBadRequest, ErrorResponse{}, "Malformed code or identifiers").
		Response(http.StatusConflict, ErrorResponse{}, "Code already used or voter has already voted").
		Response(http.StatusGone, ErrorResponse{}, "Code expired").
		Response(http.StatusUnprocessableEntity, ErrorResponse{}, "Code does not match").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Too many failed attempts").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Internal error").
		Build()

	if votingPasses {
		doc.BearerAuth("votingPass", "Voting pass returned by a successful verification")
		doc.Document(http.MethodGet, VotingPassPath).
			Summary("Inspect the current voting pass").
			OperationID("currentVotingPass").
			Tags("otp").
			Security("votingPass").
			Response(http.StatusOK, PassInfo{}, "Pass is valid").
			Response(http.StatusUnauthorized, ErrorResponse{}, "Missing, expired or invalid pass").
			Build()
	}

	doc.Document(http.MethodGet, HealthPath).
		Summary("Liveness and database connectivity").
		OperationID("health").
		Tags("system").
		Response(http.StatusOK, HealthResponse{}, "Healthy").
		Response(http.StatusServiceUnavailable, HealthResponse{}, "Database unreachable").
		Build()

	return doc
}

var Module = fx.Options(
	fx.Invoke(RegisterRoutes),
)
