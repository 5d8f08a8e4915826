package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// challengeHeader carries a resolved challenge id on credential
// resubmission so the token endpoint links the attempt to the approval.
const challengeHeader = "X-ROBINHOOD-CHALLENGE-RESPONSE-ID"

// TokenRequest is one credential submission to the token endpoint.
type TokenRequest struct {
	Username    string
	Password    string
	MFACode     string
	ChallengeID string
	DeviceToken string
	ExpiresIn   int
}

// RequestToken submits credentials to the OAuth-style token endpoint. The
// endpoint answers 4xx for challenge and MFA branches, so a decodable body
// is returned as a TokenResponse even on a non-2xx status; only transport
// failures and undecodable bodies surface as errors.
func (c *Client) RequestToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	expiresIn := req.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 86400
	}

	body := map[string]any{
		"grant_type":   "password",
		"scope":        "internal",
		"client_id":    c.clientID,
		"expires_in":   expiresIn,
		"device_token": req.DeviceToken,
		"username":     req.Username,
		"password":     req.Password,
	}
	if req.MFACode != "" {
		body["mfa_code"] = req.MFACode
	}

	var headers map[string]string
	if req.ChallengeID != "" {
		headers = map[string]string{challengeHeader: req.ChallengeID}
	}

	data, err := c.do(ctx, http.MethodPost, c.apiURL+"/oauth2/token/", "", body, headers)

	var resp TokenResponse
	if decodeErr := json.Unmarshal(data, &resp); decodeErr == nil {
		// A decoded body wins even on 4xx: the caller interprets the shape.
		return &resp, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("decoding token response: unexpected body")
}

// RespondToChallenge posts a user-supplied code against a challenge.
func (c *Client) RespondToChallenge(ctx context.Context, challengeID, code string) (*ChallengeResponse, error) {
	url := fmt.Sprintf("%s/challenge/%s/respond/", c.apiURL, challengeID)
	body := map[string]string{"response": code}

	data, err := c.do(ctx, http.MethodPost, url, "", body, nil)

	// An invalid code comes back as 4xx with a nested challenge descriptor.
	var resp ChallengeResponse
	if decodeErr := json.Unmarshal(data, &resp); decodeErr == nil && (resp.Status != "" || resp.Challenge != nil) {
		return &resp, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPromptStatus fetches the state of a push/device-approval challenge.
func (c *Client) GetPromptStatus(ctx context.Context, challengeID string) (string, error) {
	url := fmt.Sprintf("%s/push/%s/get_prompts_status/", c.apiURL, challengeID)

	var status PromptStatus
	if err := c.getJSON(ctx, url, "", &status); err != nil {
		return "", err
	}
	return status.ChallengeStatus, nil
}

// StartVerificationWorkflow registers the device against a verification
// workflow and returns the machine (inquiry) id to poll.
func (c *Client) StartVerificationWorkflow(ctx context.Context, deviceToken, workflowID string) (string, error) {
	body := map[string]any{
		"device_id": deviceToken,
		"flow":      "suv",
		"input":     map[string]string{"workflow_id": workflowID},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.postJSON(ctx, c.apiURL+"/pathfinder/user_machine/", "", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("verification workflow returned no machine id")
	}
	return resp.ID, nil
}

// inquiryView is the nested user_view payload. Only the sheriff challenge
// descriptor matters; everything else is UI copy.
type inquiryView struct {
	TypeContext struct {
		Result  string `json:"result"`
		Context struct {
			SheriffChallenge WireChallenge `json:"sheriff_challenge"`
		} `json:"context"`
	} `json:"type_context"`
}

// GetInquiryChallenge fetches the verification workflow's inquiry and
// extracts the nested challenge descriptor.
func (c *Client) GetInquiryChallenge(ctx context.Context, machineID string) (*WireChallenge, error) {
	url := fmt.Sprintf("%s/pathfinder/inquiries/%s/user_view/", c.apiURL, machineID)

	var view inquiryView
	if err := c.getJSON(ctx, url, "", &view); err != nil {
		return nil, err
	}

	ch := view.TypeContext.Context.SheriffChallenge
	if ch.ID == "" {
		return nil, fmt.Errorf("inquiry %s carries no challenge", machineID)
	}
	return &ch, nil
}

// ContinueInquiry advances the verification workflow after its challenge
// validates. Validation alone does not move the workflow state; without
// this call the subsequent token request still reports the workflow.
func (c *Client) ContinueInquiry(ctx context.Context, machineID string) error {
	url := fmt.Sprintf("%s/pathfinder/inquiries/%s/user_view/", c.apiURL, machineID)
	body := map[string]any{
		"sequence":   0,
		"user_input": map[string]string{"status": "continue"},
	}
	return c.postJSON(ctx, url, "", body, nil)
}

// RevokeToken revokes a token upstream. Callers treat failures as
// best-effort; local state is cleared regardless.
func (c *Client) RevokeToken(ctx context.Context, token string) error {
	body := map[string]string{
		"client_id": c.clientID,
		"token":     token,
	}
	return c.postJSON(ctx, c.apiURL+"/oauth2/revoke_token/", "", body, nil)
}
