package cli

import (
	"context"
	"os"

	"github.com/satriojati/storymap/internal/client/repositories/metadata"
	"github.com/satriojati/storymap/internal/push"
)

// Register prompts for account details and creates the account. On success
// the user still has to log in; the backend does not auto-login.
func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, name, email, password); err != nil {
		printlnFn("Registration failed:", err.Error())
		return err
	}
	printlnFn("Account created, you can log in now")
	return nil
}

// Login prompts for credentials and starts a session. A successful login
// also refreshes the story list since its content is per-user.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	sess, err := a.auth.Login(ctx, email, password)
	if err != nil {
		printlnFn("Login failed:", err.Error())
		return err
	}
	printlnFn("Welcome, " + sess.User.Name)
	go a.monitor.CheckConnection(ctx)
	a.syncer.Refresh(ctx)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	printlnFn("Logged out")
	return nil
}

// Subscribe opts in to push notifications: it generates fresh key material,
// registers the subscription with the backend and persists the private keys
// for the agent to pick up.
func (a *App) Subscribe(ctx context.Context) error {
	keys, err := push.GenerateKeys()
	if err != nil {
		printlnFn("Subscription failed:", err.Error())
		return err
	}
	sub := keys.Subscription(a.cfg.PushEndpoint)

	if err := a.auth.SubscribePush(ctx, sub); err != nil {
		printlnFn("Subscription failed:", err.Error())
		return err
	}

	raw, err := keys.Export()
	if err != nil {
		printlnFn("Subscription failed:", err.Error())
		return err
	}
	if err := a.meta.Set(ctx, metadata.KeyPushKeys, raw); err != nil {
		printlnFn("Subscription failed:", err.Error())
		return err
	}
	printlnFn("Push notifications enabled")
	return nil
}

func (a *App) Unsubscribe(ctx context.Context) error {
	if err := a.auth.UnsubscribePush(ctx); err != nil {
		printlnFn("Unsubscribe failed:", err.Error())
		return err
	}
	if err := a.meta.Delete(ctx, metadata.KeyPushKeys); err != nil {
		printlnFn("Unsubscribe failed:", err.Error())
		return err
	}
	printlnFn("Push notifications disabled")
	return nil
}
