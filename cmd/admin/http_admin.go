package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	token := fs.String("token", os.Getenv("RP_ADMIN_TOKEN"), "admin bearer token (or set RP_ADMIN_TOKEN)")
	_ = fs.Parse(args)
	adminCall(http.MethodGet, *baseURL, "/admin/v1/state", *token, 5*time.Second)
}

func reloadCmd(args []string) {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	token := fs.String("token", os.Getenv("RP_ADMIN_TOKEN"), "admin bearer token (or set RP_ADMIN_TOKEN)")
	_ = fs.Parse(args)
	adminCall(http.MethodPost, *baseURL, "/admin/v1/reload", *token, 15*time.Second)
}

func adminCall(method, baseURL, path, token string, timeout time.Duration) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	if t := strings.TrimSpace(token); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
