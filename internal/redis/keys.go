package redisx

import "fmt"

const ns = "stagepass:v1"

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdemBuy(email, idemKey string) string {
	return fmt.Sprintf("%s:idem:buy:%s:%s", ns, email, idemKey)
}
