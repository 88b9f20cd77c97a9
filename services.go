package main

import (
	"errors"
	"net/url"
	"os/exec"
	"runtime"
)

var startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }

func defaultOpenURL(target string) error {
	return defaultOpenURLForOS(runtime.GOOS, target)
}

// defaultOpenURLForOS hands target to the platform opener. Only http(s)
// sources are opened; nvd/cve subscriptions may carry bare identifiers.
func defaultOpenURLForOS(goos string, target string) error {
	if target == "" {
		return errors.New("empty url")
	}
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errors.New("not a web url: " + target)
	}
	cmdName, args := openCommandForOS(goos, target)
	if cmdName == "" {
		return errors.New("unsupported platform")
	}
	return startCommand(exec.Command(cmdName, args...))
}

func openCommandForOS(goos string, target string) (string, []string) {
	if goos == "unsupported" {
		return "", nil
	}
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}
