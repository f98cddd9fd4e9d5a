// Command gentoken prints a signed access token for local testing, so the
// API can be exercised without the back-office login.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/config"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	nome := flag.String("nome", "Ceramista Demo", "nome do operador")
	rol := flag.String("rol", "administrador", "papel (ceramista, supervisor, administrador)")
	userID := flag.String("id", uuid.NewString(), "uuid do operador")
	validade := flag.Duration("validade", 8*time.Hour, "validade do token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET não definido")
		os.Exit(1)
	}

	claims := middleware.JWTClaims{
		UserID: *userID,
		Nome:   *nome,
		Rol:    *rol,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(*validade)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		fmt.Fprintln(os.Stderr, "assinar:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
