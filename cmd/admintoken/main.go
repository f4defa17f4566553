// Command admintoken prints a signed admin bearer token for operators.
//
//	admintoken -sub ops-alice
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/exam-registration/internal/config"
	"github.com/exam-registration/internal/domain"
	jwtinfra "github.com/exam-registration/internal/infrastructure/jwt"
)

func main() {
	sub := flag.String("sub", "", "operator id recorded as the token subject")
	role := flag.String("role", domain.RoleAdmin, "role claim")
	flag.Parse()
	if *sub == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	p, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("load keys: %v", err)
	}
	token, err := p.Sign(*sub, *role)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(token)
}
