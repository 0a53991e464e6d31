//go:build linux

package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	seccomp "github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"
)

// seccompProfile is the on-disk syscall filter format: a default action
// plus per-syscall overrides.
type seccompProfile struct {
	DefaultAction string           `json:"defaultAction"`
	Syscalls      []seccompSyscall `json:"syscalls"`
}

type seccompSyscall struct {
	Names  []string `json:"names"`
	Action string   `json:"action"`
}

func loadSeccompProfile(path string) (seccompProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seccompProfile{}, fmt.Errorf("read seccomp profile: %w", err)
	}
	var profile seccompProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return seccompProfile{}, fmt.Errorf("parse seccomp profile: %w", err)
	}
	if _, err := parseSeccompAction(profile.DefaultAction); err != nil {
		return seccompProfile{}, err
	}
	for _, rule := range profile.Syscalls {
		if _, err := parseSeccompAction(rule.Action); err != nil {
			return seccompProfile{}, err
		}
	}
	return profile, nil
}

// applySeccomp installs the syscall filter from the profile at path. It
// must run immediately before exec; every syscall the scorer makes after
// this point is subject to the filter.
func applySeccomp(path string) error {
	profile, err := loadSeccompProfile(path)
	if err != nil {
		return err
	}
	defaultAction, err := parseSeccompAction(profile.DefaultAction)
	if err != nil {
		return err
	}
	filter, err := seccomp.NewFilter(defaultAction)
	if err != nil {
		return fmt.Errorf("create seccomp filter: %w", err)
	}
	for _, rule := range profile.Syscalls {
		action, err := parseSeccompAction(rule.Action)
		if err != nil {
			return err
		}
		for _, name := range rule.Names {
			if err := filter.AddRuleExact(name, action); err != nil {
				return fmt.Errorf("add seccomp rule: %w", err)
			}
		}
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("set no new privs: %w", err)
	}
	if err := filter.Load(); err != nil {
		return fmt.Errorf("load seccomp filter: %w", err)
	}
	return nil
}

func parseSeccompAction(action string) (seccomp.ScmpAction, error) {
	switch strings.ToUpper(action) {
	case "SCMP_ACT_ALLOW":
		return seccomp.ActAllow, nil
	case "SCMP_ACT_KILL", "SCMP_ACT_KILL_PROCESS":
		return seccomp.ActKillProcess, nil
	default:
		return seccomp.ActKillProcess, fmt.Errorf("unsupported seccomp action: %s", action)
	}
}
