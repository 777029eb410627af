package service

import (
	"context"

	"github.com/entrhq/headline/pkg/login"
)

// LoginStatus is the payload of CheckLoginStatus.
type LoginStatus struct {
	LoggedIn bool           `json:"is_logged_in"`
	UserInfo map[string]any `json:"user_info"`
}

// Login runs the interactive login. Only one login runs at a time.
func (s *Service) Login(ctx context.Context) Response {
	if !s.Initialized() {
		return failed("服务未初始化")
	}
	if !s.loginMu.TryLock() {
		return failed("登录正在进行中，请在浏览器中完成登录")
	}
	defer s.loginMu.Unlock()

	res, err := s.deps.Login.Run(ctx)
	s.deps.Metrics.LoginFinished(res.State.String())
	if err != nil {
		s.logger.Warnf("login failed: %v", err)
	}
	if res.State != login.Authenticated {
		msg := res.Message
		if msg == "" {
			msg = "登录失败"
		}
		return Response{Message: msg, Data: res}
	}
	return ok(res.Message, res)
}

// CheckLoginStatus probes the session and, when logged in, fetches the
// account's user info. A user info failure does not fail the check.
func (s *Service) CheckLoginStatus(ctx context.Context) Response {
	if !s.Initialized() {
		return failed("服务未初始化")
	}
	st := s.deps.Probe.Check(ctx)
	out := LoginStatus{LoggedIn: st.Authenticated}
	if st.Authenticated {
		info, err := s.deps.Platform.UserInfo(ctx)
		if err != nil {
			s.logger.Warnf("failed to fetch user info: %v", err)
		} else {
			out.UserInfo = info
		}
	}
	msg := "未登录"
	if st.Authenticated {
		msg = "已登录"
	}
	return ok(msg, out)
}

// Logout clears the stored session.
func (s *Service) Logout(ctx context.Context) Response {
	if s.deps.Store == nil {
		return failed("服务未初始化")
	}
	if err := s.deps.Store.Clear(); err != nil {
		s.logger.Errorf("logout failed: %v", err)
		return failed("登出失败")
	}
	s.logger.Infof("session cleared")
	return ok("登出成功", nil)
}
