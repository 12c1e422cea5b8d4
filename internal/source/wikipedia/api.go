package wikipedia

import (
	"encoding/json"
	"fmt"
	"strings"
)

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) err() error {
	if e == nil {
		return nil
	}
	return fmt.Errorf("api error %s: %s", e.Code, e.Info)
}

type searchResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type pageResponse struct {
	Error    *apiError `json:"error"`
	Continue struct {
		ExtLinks string `json:"elcontinue"`
		Continue string `json:"continue"`
	} `json:"continue"`
	Query struct {
		Pages []apiPage `json:"pages"`
	} `json:"query"`
}

type apiPage struct {
	Title         string            `json:"title"`
	Missing       bool              `json:"missing"`
	Invalid       bool              `json:"invalid"`
	InvalidReason string            `json:"invalidreason"`
	PageProps     map[string]string `json:"pageprops"`
	ExtLinks      []struct {
		URL string `json:"url"`
	} `json:"extlinks"`
}

func (p apiPage) isDisambiguation() bool {
	_, ok := p.PageProps["disambiguation"]
	return ok
}

func decode(body []byte, out any) error {
	if len(body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// normalizeLink gives protocol-relative links an explicit scheme.
func normalizeLink(link string) string {
	if strings.HasPrefix(link, "//") {
		return "http:" + link
	}
	return link
}
