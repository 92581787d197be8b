package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tuanle2204/BookSwap-Group07/cli/config"
)

// authorizedRequest sends an authenticated request to the API server and
// returns the response body. The caller must be logged in.
func authorizedRequest(method, path string, payload interface{}) (int, []byte, error) {
	cfg, err := config.Load()
	if err != nil {
		printError("Configuration not initialized")
		fmt.Println("Run: bookswap init")
		return 0, nil, err
	}
	if cfg.User.Token == "" {
		printError("Not authenticated. Run 'bookswap auth login' first")
		return 0, nil, fmt.Errorf("not authenticated")
	}

	serverURL, err := config.GetServerURL()
	if err != nil {
		return 0, nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, serverURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.User.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		printError("Server connection error")
		fmt.Println("Check server status: bookswap system info")
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, nil
}

func apiError(body []byte) string {
	var errRes map[string]string
	json.Unmarshal(body, &errRes)
	if msg, ok := errRes["error"]; ok {
		return msg
	}
	return "unexpected server response"
}
