package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/franciscosanchezn/campus-canteen-api/internal/auth"
	"github.com/franciscosanchezn/campus-canteen-api/internal/config"
	"github.com/franciscosanchezn/campus-canteen-api/internal/database"
	"github.com/franciscosanchezn/campus-canteen-api/internal/services"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	role := flag.String("role", "student", "User role (admin, vendor, staff, faculty, student, guest)")
	password := flag.String("password", "dev-password-123", "Password for the development user")
	flag.Parse()

	if !access.IsValid(*role) {
		log.Fatalf("Unknown role %q", *role)
	}

	_ = godotenv.Load()
	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		URL:      conf.DatabaseURL,
		Path:     conf.DBPath,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ctx := context.Background()
	users := services.NewUserService(db)
	email := fmt.Sprintf("%s@canteen.dev", *role)

	// Get or create user, then force the requested role
	user, err := users.Register(ctx, services.RegisterRequest{
		Email:    email,
		Password: *password,
		Name:     fmt.Sprintf("Development %s", *role),
	})
	switch {
	case errors.Is(err, services.ErrUserExists):
		user, err = users.Authenticate(ctx, email, *password)
		if err != nil {
			log.Fatalf("User %s exists with a different password: %v", email, err)
		}
		fmt.Printf("Found existing user: %s (ID: %d)\n", user.Email, user.ID)
	case err != nil:
		log.Fatal("Failed to create user:", err)
	default:
		fmt.Printf("Created new user: %s (ID: %d)\n", user.Email, user.ID)
	}
	if _, err := users.SetRole(ctx, user.ID, access.Role(*role)); err != nil {
		log.Fatal("Failed to set role:", err)
	}

	token, err := auth.NewTokenIssuer([]byte(conf.JWTSecret), auth.DefaultTTL, users).Issue(ctx, user.ID)
	if err != nil {
		log.Fatal("Failed to issue token:", err)
	}

	fmt.Printf("✓ Development user ready for role '%s'!\n", *role)
	fmt.Printf("Email: %s\n", email)
	fmt.Printf("Password: %s\n", *password)
	fmt.Printf("Expires: %s\n", token.ExpiresAt)
	fmt.Println("\nUse this token for testing:")
	fmt.Printf("curl http://localhost:%d/api/v1/protected/me \\\n", conf.Port)
	fmt.Printf("  -H 'Authorization: Bearer %s'\n", token.AccessToken)
}
