package gcp

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// GetApp creates a Firebase App instance. When credentialsPath is non-empty the
// service account file is used; otherwise application default credentials apply.
func GetApp(ctx context.Context, credentialsPath string) (*firebase.App, error) {
	if credentialsPath != "" {
		return firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	}
	return firebase.NewApp(ctx, nil)
}

// InitFirebaseAuth initializes the Firebase App and returns an Auth client.
func InitFirebaseAuth(ctx context.Context, credentialsPath string) (*firebase.App, *firebaseauth.Client, error) {
	app, err := GetApp(ctx, credentialsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	fbAuth, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing firebase auth [%w]", err)
	}

	return app, fbAuth, nil
}
