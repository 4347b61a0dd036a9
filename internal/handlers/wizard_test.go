// internal/handlers/wizard_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/unilearn/sis-backend/internal/config"
	"github.com/unilearn/sis-backend/internal/services"
	"github.com/unilearn/sis-backend/internal/session"
)

type WizardTestSuite struct {
	suite.Suite
	router *gin.Engine
	drafts *session.MemoryStore
}

func (suite *WizardTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		Admissions:  config.AdmissionsConfig{DraftTTL: 120},
	}

	suite.drafts = session.NewMemoryStore()
	wizardService := services.NewWizardService(nil, suite.drafts)
	applicationService := services.NewApplicationService(nil, suite.drafts, services.NewReferenceGenerator("APP"), nil, nil)
	handler := NewWizardHandler(wizardService, applicationService, cfg)

	suite.router = gin.New()
	suite.router.GET("/v1/admissions/apply/steps/:step", handler.ShowStep)
	suite.router.POST("/v1/admissions/apply/steps/:step", handler.StoreStep)
	suite.router.POST("/v1/admissions/apply/submit", handler.Submit)
}

func (suite *WizardTestSuite) request(method, path string, body interface{}, sessionID string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *WizardTestSuite) seedDraft(sessionID string, fields map[string]interface{}) {
	err := suite.drafts.Merge(context.Background(), sessionID, fields)
	suite.Require().NoError(err)
}

func (suite *WizardTestSuite) TestStepOneAlwaysReachable() {
	w := suite.request("GET", "/v1/admissions/apply/steps/1", nil, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *WizardTestSuite) TestLaterStepsRedirectWithoutDraft() {
	for step := 2; step <= 5; step++ {
		w := suite.request("GET", fmt.Sprintf("/v1/admissions/apply/steps/%d", step), nil, "")
		assert.Equal(suite.T(), http.StatusSeeOther, w.Code, "step %d", step)
		assert.Equal(suite.T(), "/v1/admissions/apply/steps/1", w.Header().Get("Location"), "step %d", step)
	}
}

func (suite *WizardTestSuite) TestStepReachableAfterPredecessorCompleted() {
	suite.seedDraft("sess-1", map[string]interface{}{"program_id": "some-uuid"})

	w := suite.request("GET", "/v1/admissions/apply/steps/2", nil, "sess-1")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// Step 3 still requires step 2's marker.
	w = suite.request("GET", "/v1/admissions/apply/steps/3", nil, "sess-1")
	assert.Equal(suite.T(), http.StatusSeeOther, w.Code)
}

func (suite *WizardTestSuite) TestShowStepReturnsDraftForPrefill() {
	suite.seedDraft("sess-1", map[string]interface{}{
		"program_id": "some-uuid",
		"email":      "ada@example.edu",
	})

	w := suite.request("GET", "/v1/admissions/apply/steps/2", nil, "sess-1")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	draft := data["draft"].(map[string]interface{})
	assert.Equal(suite.T(), "ada@example.edu", draft["email"])
}

func (suite *WizardTestSuite) TestInvalidStepNumber() {
	for _, step := range []string{"0", "6", "abc"} {
		w := suite.request("GET", "/v1/admissions/apply/steps/"+step, nil, "")
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, "step %s", step)
	}
}

func (suite *WizardTestSuite) TestPostingOutOfOrderRedirects() {
	w := suite.request("POST", "/v1/admissions/apply/steps/2", map[string]interface{}{
		"first_name":    "Ada",
		"last_name":     "Lovelace",
		"email":         "ada@example.edu",
		"confirm_email": "ada@example.edu",
	}, "")
	assert.Equal(suite.T(), http.StatusSeeOther, w.Code)
}

func (suite *WizardTestSuite) TestStorePersonalStep() {
	suite.seedDraft("sess-1", map[string]interface{}{"program_id": "some-uuid"})

	w := suite.request("POST", "/v1/admissions/apply/steps/2", map[string]interface{}{
		"first_name":    "Ada",
		"last_name":     "Lovelace",
		"email":         "ada@example.edu",
		"confirm_email": "ada@example.edu",
	}, "sess-1")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	draft, err := suite.drafts.Get(context.Background(), "sess-1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "ada@example.edu", draft.GetString("email"))
	assert.False(suite.T(), draft.Has("confirm_email"))
}

func (suite *WizardTestSuite) TestStorePersonalRejectsMismatchedEmails() {
	suite.seedDraft("sess-1", map[string]interface{}{"program_id": "some-uuid"})

	w := suite.request("POST", "/v1/admissions/apply/steps/2", map[string]interface{}{
		"first_name":    "Ada",
		"last_name":     "Lovelace",
		"email":         "ada@example.edu",
		"confirm_email": "typo@example.edu",
	}, "sess-1")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *WizardTestSuite) TestReviewStepAcceptsNoPost() {
	suite.seedDraft("sess-1", map[string]interface{}{
		"program_id": "x", "email": "a@b.edu",
		"education_level": "bachelor", "has_work_experience": true,
	})

	w := suite.request("POST", "/v1/admissions/apply/steps/5", map[string]interface{}{}, "sess-1")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *WizardTestSuite) TestSubmitWithoutDraftRedirects() {
	w := suite.request("POST", "/v1/admissions/apply/submit", nil, "")
	assert.Equal(suite.T(), http.StatusSeeOther, w.Code)
	assert.Equal(suite.T(), "/v1/admissions/apply/steps/1", w.Header().Get("Location"))
}

func (suite *WizardTestSuite) TestSessionCookieIssuedOnFirstContact() {
	w := suite.request("GET", "/v1/admissions/apply/steps/1", nil, "")

	cookies := w.Result().Cookies()
	var found bool
	for _, cookie := range cookies {
		if cookie.Name == sessionCookieName {
			found = true
			assert.NotEmpty(suite.T(), cookie.Value)
			assert.True(suite.T(), cookie.HttpOnly)
		}
	}
	assert.True(suite.T(), found)
}

func TestWizardSuite(t *testing.T) {
	suite.Run(t, new(WizardTestSuite))
}
