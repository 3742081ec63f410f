package user

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

// Students self-register with a short approval code the tutor can match
// against their pending list. It is an out-of-band hint, not a credential.
const adminCodePrefix = "STUDY"

var AdminCodeRegex = regexp.MustCompile(`^STUDY[0-9]{4}$`)

func init() {
	rand.Seed(time.Now().UnixNano())
}

func generateAdminCode() string {
	return fmt.Sprintf("%s%d", adminCodePrefix, 1000+rand.Intn(9000))
}
