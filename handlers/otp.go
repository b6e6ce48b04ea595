package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/votegate/services/logging"
	"github.com/tech-arch1tect/votegate/services/otp"
	"github.com/tech-arch1tect/votegate/services/votingpass"
	"go.uber.org/zap"
)

type IssueRequest struct {
	VoterID    int64 `json:"voter_id"`
	ElectionID int64 `json:"election_id"`
}

type VerifyRequest struct {
	Code       string `json:"code"`
	VoterID    int64  `json:"voter_id,omitempty"`
	ElectionID int64  `json:"election_id,omitempty"`
}

type VerifyResponse struct {
	Valid      bool             `json:"valid"`
	VoterID    uint             `json:"voter_id"`
	ElectionID uint             `json:"election_id"`
	VerifiedAt time.Time        `json:"verified_at"`
	VotingPass *votingpass.Pass `json:"voting_pass,omitempty"`
}

type PassInfo struct {
	VoterID    uint      `json:"voter_id"`
	ElectionID uint      `json:"election_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type OTPHandler struct {
	otp    *otp.Service
	passes *votingpass.Service
	logger *logging.Service
}

func NewOTPHandler(svc *otp.Service, passes *votingpass.Service, logger *logging.Service) *OTPHandler {
	return &OTPHandler{otp: svc, passes: passes, logger: logger}
}

func (h *OTPHandler) Issue(c echo.Context) error {
	var req IssueRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, malformedBody())
	}

	result, err := h.otp.IssueOtp(c.Request().Context(), positive(req.VoterID), positive(req.ElectionID))
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, result)
}

func (h *OTPHandler) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, malformedBody())
	}
	if req.VoterID < 0 || req.ElectionID < 0 {
		return respondError(c, &otp.Error{
			Kind:    otp.KindValidationFailed,
			Message: "voter_id and election_id must be positive integers",
		})
	}

	result, err := h.otp.VerifyOtp(c.Request().Context(), otp.VerifyRequest{
		Code:       req.Code,
		VoterID:    uint(req.VoterID),
		ElectionID: uint(req.ElectionID),
	})
	if err != nil {
		return respondError(c, err)
	}

	resp := VerifyResponse{
		Valid:      true,
		VoterID:    result.VoterID,
		ElectionID: result.ElectionID,
		VerifiedAt: result.VerifiedAt,
	}

	if h.passes != nil {
		pass, err := h.passes.Issue(result.VoterID, result.ElectionID, result.RecordID)
		if err != nil {
			if h.logger != nil {
				h.logger.Error("failed to issue voting pass",
					zap.Uint("voter_id", result.VoterID),
					zap.Uint("election_id", result.ElectionID),
					zap.Error(err))
			}
		} else {
			resp.VotingPass = pass
		}
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, resp)
}

func (h *OTPHandler) CurrentPass(c echo.Context) error {
	claims := votingpass.ClaimsFrom(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "voting pass required")
	}

	resp := PassInfo{VoterID: claims.VoterID, ElectionID: claims.ElectionID}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	return c.JSON(http.StatusOK, resp)
}

func positive(id int64) uint {
	if id <= 0 {
		return 0
	}
	return uint(id)
}

func malformedBody() error {
	return &otp.Error{
		Kind:    otp.KindValidationFailed,
		Message: "request body must be valid JSON",
	}
}
