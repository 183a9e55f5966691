package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// applyConf overlays values from an iglogin.conf file onto s. A missing file
// leaves s untouched.
func applyConf(path string, s *Settings) error {
	conf, err := parseConf(path)
	if err != nil {
		return err
	}

	if v, ok := conf["app_id"]; ok {
		s.AppID = v
	}
	if v, ok := conf["app_secret"]; ok {
		s.AppSecret = v
	}
	if v, ok := conf["redirect_url"]; ok {
		s.RedirectURL = v
	}
	if v, ok := conf["scopes"]; ok {
		s.Scopes = splitList(v)
	}
	if v, ok := conf["response_type"]; ok {
		s.ResponseType = v
	}
	if v, ok := conf["state"]; ok {
		s.State = v
	}
	if v, ok := conf["auth_url"]; ok {
		s.AuthURL = v
	}
	if v, ok := conf["token_url"]; ok {
		s.TokenURL = v
	}
	if v, ok := conf["token_storage"]; ok {
		s.TokenStorage = v
	}
	if v, ok := conf["headless"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid headless value %q in %s", v, path)
		}
		s.Headless = b
	}
	return nil
}

// Save writes s to path, creating the directory if needed
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("# iglogin config\n\n")
	b.WriteString(fmt.Sprintf("app_id = %s\n", s.AppID))
	b.WriteString("# leave empty to receive the code instead of exchanging it\n")
	b.WriteString("# IGLOGIN_APP_SECRET works too and keeps it out of this file\n")
	b.WriteString(fmt.Sprintf("app_secret = %s\n", s.AppSecret))
	b.WriteString(fmt.Sprintf("redirect_url = %s\n", s.RedirectURL))
	b.WriteString(fmt.Sprintf("scopes = %s\n", strings.Join(s.Scopes, ",")))
	b.WriteString("# code or token\n")
	b.WriteString(fmt.Sprintf("response_type = %s\n", s.ResponseType))
	if s.State != "" {
		b.WriteString(fmt.Sprintf("state = %s\n", s.State))
	}
	b.WriteString(fmt.Sprintf("auth_url = %s\n", s.AuthURL))
	b.WriteString(fmt.Sprintf("token_url = %s\n", s.TokenURL))
	b.WriteString("# file or keychain\n")
	b.WriteString(fmt.Sprintf("token_storage = %s\n", s.TokenStorage))
	b.WriteString(fmt.Sprintf("headless = %t\n", s.Headless))
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func parseConf(path string) (map[string]string, error) {
	result := make(map[string]string)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			result[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return result, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
