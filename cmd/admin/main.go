package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"resumeghana/internal/auth"
	"resumeghana/internal/config"
	"resumeghana/internal/database"
)

func main() {
	var (
		username = flag.String("username", "", "要创建的用户名（必填）")
		issue    = flag.Bool("issue-token", false, "创建后使用 JWT 私钥签发一对令牌")
		privKey  = flag.String("private-key", "", "JWT 私钥路径（可选，默认读 JWT_PRIVATE_KEY_PATH）")
		pubKey   = flag.String("public-key", "", "JWT 公钥路径（可选，默认读 JWT_PUBLIC_KEY_PATH）")
		dbHost   = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort   = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName   = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser   = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass   = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode  = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	u := strings.TrimSpace(*username)
	if u == "" {
		log.Fatal("missing required flag: --username")
	}

	dbCfg, err := config.LoadDatabase(config.DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		Name:     *dbName,
		User:     *dbUser,
		Password: *dbPass,
		SSLMode:  *sslMode,
	})
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var existing database.User
	switch err := db.Where("username = ?", u).First(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", u)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		Username:     u,
		PasswordHash: hashed,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("已创建账号：\n")
	fmt.Printf("用户 ID: %d\n", user.ID)
	fmt.Printf("用户名: %s\n", u)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次。\n")

	if !*issue {
		return
	}
	pair, err := issueTokens(user.ID, *privKey, *pubKey)
	if err != nil {
		log.Fatalf("issue tokens: %v", err)
	}
	fmt.Printf("access token: %s\n", pair.AccessToken)
	fmt.Printf("refresh token: %s\n", pair.RefreshToken)
}

func issueTokens(userID uint, privPath, pubPath string) (auth.TokenPair, error) {
	if strings.TrimSpace(privPath) == "" {
		privPath = envOr("JWT_PRIVATE_KEY_PATH", "keys/jwt_private.pem")
	}
	if strings.TrimSpace(pubPath) == "" {
		pubPath = envOr("JWT_PUBLIC_KEY_PATH", "keys/jwt_public.pem")
	}
	privPEM, err := os.ReadFile(privPath)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(pubPath)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("read public key: %w", err)
	}
	svc, err := auth.NewAuthService(privPEM, pubPEM, 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		return auth.TokenPair{}, err
	}
	return svc.GenerateTokenPair(userID)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
