package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/clients/platform"

	"github.com/google/go-querystring/query"
)

const DefaultGraphBaseURL = "https://graph.facebook.com/v18.0"

// graphClient posts url-encoded forms to the Graph API. Instagram and
// Facebook share it.
type graphClient struct {
	baseURL    string
	httpClient *http.Client
}

func newGraphClient(baseURL string, timeout time.Duration) graphClient {
	if baseURL == "" {
		baseURL = DefaultGraphBaseURL
	}
	return graphClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: platform.NewHTTPClient(timeout)}
}

type graphID struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// post sends form to /<node>/<edge>. A nil result means the id was decoded;
// otherwise the failure is returned with step as message prefix.
func (g graphClient) post(ctx context.Context, p model.Platform, node, edge string, form interface{}, step string) (graphID, *model.PublishResult) {
	var out graphID
	values, err := query.Values(form)
	if err != nil {
		f := model.PublishFailure(model.ErrorClassPlatform, err.Error())
		return out, &f
	}
	endpoint := fmt.Sprintf("%s/%s/%s", g.baseURL, node, edge)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		f := platform.TransportFailure(p, err)
		return out, &f
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		f := platform.TransportFailure(p, err)
		return out, &f
	}
	body := platform.ReadBody(resp)
	if resp.StatusCode != http.StatusOK {
		f := graphFailure(resp.StatusCode, body, step)
		return out, &f
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil || (out.ID == "" && out.PostID == "") {
		f := model.PublishFailure(model.ErrorClassPlatform, fmt.Sprintf("%s: unexpected response %s", step, body))
		return out, &f
	}
	return out, nil
}

// graphFailure maps Graph error codes: 190 is an invalid token, 4/17/32/613
// are throttling.
func graphFailure(status int, body, step string) model.PublishResult {
	var e struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	res := platform.StatusFailure(status, body, step)
	if json.Unmarshal([]byte(body), &e) == nil {
		switch e.Error.Code {
		case 190:
			res.ErrorClass = model.ErrorClassAuth
		case 4, 17, 32, 613:
			res.ErrorClass = model.ErrorClassRateLimit
		}
	}
	return res
}
