package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/domain/actor"
	"github.com/your-org/pharmacy-pos/internal/pkg/auth"
)

// Mints an access token for local testing, signed with JWT_SECRET from the environment
func main() {
	if len(os.Args) < 4 {
		log.Fatal("Usage: go run scripts/generate_token.go <user_id> <tenant_id> <owner|pharmacist|attendant> [override]")
	}

	userID, err := strconv.ParseUint(os.Args[1], 10, 32)
	if err != nil {
		log.Fatal("Invalid user id:", err)
	}
	tenantID, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		log.Fatal("Invalid tenant id:", err)
	}
	role := actor.Role(os.Args[3])
	if !actor.IsValidRole(role) {
		log.Fatalf("Unknown role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	a := actor.Actor{
		ID:            uint(userID),
		TenantID:      uint(tenantID),
		Role:          role,
		OverrideStock: len(os.Args) > 4 && os.Args[4] == "override",
	}

	jwtManager := auth.NewJWTManager(cfg)
	token, err := jwtManager.GenerateAccessToken(a)
	if err != nil {
		log.Fatal("Error generating token:", err)
	}

	if _, err := jwtManager.ValidateAccessToken(token); err != nil {
		log.Fatal("Token verification failed:", err)
	}

	fmt.Printf("Actor: user %d, tenant %d, %s (override stock: %t)\n", a.ID, a.TenantID, a.Role, a.CanOverrideStock())
	fmt.Printf("Token: %s\n", token)
}
