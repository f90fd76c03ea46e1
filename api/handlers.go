package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/locale"
	"github.com/georgepadayatti/esign/pdf/images"
	"github.com/georgepadayatti/esign/service"
	"github.com/georgepadayatti/esign/verification"
)

type signerBody struct {
	Ref   document.SignerRef `json:"ref"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	OTP   string             `json:"otp"`
}

type signBody struct {
	// PDF is the current document, base64 encoded.
	PDF string `json:"pdf" binding:"required"`
	// Signature is the drawn signature as base64 or a data URL.
	Signature string     `json:"signature"`
	Signer    signerBody `json:"signer"`
}

type viewBody struct {
	Signer document.SignerRef `json:"signer"`
}

var statusByCode = map[service.Code]int{
	service.CodeNotFound:     http.StatusNotFound,
	service.CodeUnauthorized: http.StatusUnauthorized,
	service.CodeValidation:   http.StatusBadRequest,
	service.CodeCrypto:       http.StatusInternalServerError,
	service.CodeIO:           http.StatusBadGateway,
	service.CodeInternal:     http.StatusInternalServerError,
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      gin.H{"code": code, "message": message},
		"request_id": requestIDOf(c),
	})
}

// fail writes the error envelope for a service error.
func (s *Server) fail(c *gin.Context, err error) {
	code := service.CodeOf(err)
	message := "internal server error"
	var se *service.Error
	if errors.As(err, &se) {
		message = se.Message
	}
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	abortWithError(c, status, string(code), message)
}

func (s *Server) badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, string(service.CodeValidation), message)
}

func (s *Server) signDocument(c *gin.Context) {
	var body signBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	pdf, err := base64.StdEncoding.DecodeString(body.PDF)
	if err != nil {
		s.badRequest(c, "pdf is not valid base64")
		return
	}
	var signature []byte
	if body.Signature != "" {
		signature, err = decodeImage(body.Signature)
		if err != nil {
			s.badRequest(c, "signature is not a valid image encoding")
			return
		}
	}

	resp, err := s.service.SignDocument(c.Request.Context(), service.SignRequest{
		DocumentID: c.Param("id"),
		PDF:        pdf,
		Signer: service.SignerIdentity{
			Ref:   body.Signer.Ref,
			Name:  body.Signer.Name,
			Email: body.Signer.Email,
			OTP:   body.Signer.OTP,
		},
		SignatureImage: signature,
		OriginIP:       c.ClientIP(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// decodeImage accepts a data URL or plain base64.
func decodeImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		return images.DataURLBytes(s)
	}
	return base64.StdEncoding.DecodeString(s)
}

func (s *Server) generateCertificate(c *gin.Context) {
	resp, err := s.service.GenerateCertificate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recordView(c *gin.Context) {
	var body viewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	err := s.service.RecordView(c.Request.Context(), service.ViewRequest{
		DocumentID: c.Param("id"),
		Signer:     body.Signer,
		IP:         c.ClientIP(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": service.StatusSuccess})
}

func (s *Server) verify(c *gin.Context) {
	res, err := s.verifier.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("verification failed", zap.String("request_id", requestIDOf(c)), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, string(service.CodeInternal), "verification failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

type signerView struct {
	Name      string
	Email     string
	SignedOn  string
	IPAddress string
}

type pageView struct {
	Lang        string
	T           locale.PageTexts
	Valid       bool
	Failed      bool
	Reason      verification.Reason
	Message     string
	Summary     verification.Summary
	CreatedOn   string
	CompletedOn string
	Signers     []signerView
}

// verifyPage renders the public verification page in the language asked
// for by ?lang, then Accept-Language.
func (s *Server) verifyPage(c *gin.Context) {
	msgs := locale.Match(c.Query("lang"), c.GetHeader("Accept-Language"))
	view := pageView{Lang: msgs.Tag.String(), T: msgs.Page}

	res, err := s.verifier.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("verification failed", zap.String("request_id", requestIDOf(c)), zap.Error(err))
		view.Failed = true
		c.HTML(http.StatusInternalServerError, "verify.html", view)
		return
	}

	switch r := res.(type) {
	case verification.Valid:
		dates := locale.NewDateFormatter("", "", false)
		view.Valid = true
		view.Summary = r.Summary
		view.CreatedOn = dates.Format(r.Summary.CreatedOn)
		view.CompletedOn = dates.FormatPtr(r.Summary.CompletedOn, "N/A")
		for _, sg := range r.Summary.Signers {
			view.Signers = append(view.Signers, signerView{
				Name:      sg.Name,
				Email:     sg.Email,
				SignedOn:  dates.FormatPtr(sg.SignedOn, "N/A"),
				IPAddress: sg.IPAddress,
			})
		}
	case verification.Invalid:
		view.Reason = r.Reason
		view.Message = r.Message
	}
	c.HTML(http.StatusOK, "verify.html", view)
}
