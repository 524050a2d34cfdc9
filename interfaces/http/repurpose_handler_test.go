package http

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"repurposer/domain/model"
	"repurposer/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func repurposeRouter(uc *mockRepurpose) http.Handler {
	r := newRouter()
	r.POST("/repurpose", NewRepurposeHandler(uc).Submit)
	return r
}

func TestRepurposeHandler_Submit(t *testing.T) {
	uc := new(mockRepurpose)
	uc.On("Submit", mock.Anything, testTenant, "u1", mock.MatchedBy(func(req usecase.RepurposeRequest) bool {
		return req.SourceURL == "https://blog.example.com/go" && len(req.Platforms) == 2
	})).Return(&usecase.RepurposeResult{
		Source: &model.ContentSource{ID: 1, Title: "Go"},
		Posts:  []*model.RepurposedPost{{ID: 1, Platform: model.PlatformLinkedIn}, {ID: 2, Platform: model.PlatformTwitter}},
	}, nil)

	w := serve(repurposeRouter(uc), http.MethodPost, "/repurpose",
		strings.NewReader(`{"source_url":"https://blog.example.com/go","platforms":["linkedin","twitter"]}`), "application/json")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"posts"`)
}

func TestRepurposeHandler_Errors(t *testing.T) {
	partial := &usecase.RepurposeResult{
		Source: &model.ContentSource{ID: 1},
		Posts:  []*model.RepurposedPost{{ID: 1, Status: model.PostStatusFailed}},
	}
	tests := []struct {
		name     string
		res      *usecase.RepurposeResult
		err      error
		wantCode int
		wantBody string
	}{
		{"usage limit", nil, usecase.ErrUsageLimitReached, http.StatusForbidden, "monthly repurpose limit"},
		{"bad input", nil, fmt.Errorf("%w: unknown platform", usecase.ErrInvalidRequest), http.StatusBadRequest, "unknown platform"},
		{"generation failed", partial, fmt.Errorf("generating linkedin post: %w", assert.AnError), http.StatusBadGateway, `"posts"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(mockRepurpose)
			uc.On("Submit", mock.Anything, testTenant, "u1", mock.Anything).Return(tt.res, tt.err)
			w := serve(repurposeRouter(uc), http.MethodPost, "/repurpose", strings.NewReader(`{"raw_text":"x","platforms":["linkedin"]}`), "application/json")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRepurposeHandler_RequiresPlatforms(t *testing.T) {
	uc := new(mockRepurpose)
	w := serve(repurposeRouter(uc), http.MethodPost, "/repurpose", strings.NewReader(`{"raw_text":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	uc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
