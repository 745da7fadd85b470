package chain

import (
	"strings"

	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/utils"
)

// socialOrder is the allow-list of keys the contract accepts, in the order
// they are submitted.
var socialOrder = map[string]int64{
	domain.SocialX:         0,
	domain.SocialFarcaster: 1,
	domain.SocialGithub:    2,
	domain.SocialLinkedin:  3,
}

var socialAliases = map[string]string{
	"twitter": domain.SocialX,
}

// TranslateSocials turns the draft's social links into the parallel key and
// value arrays mintBaseCard expects. Unknown keys and empty values are
// dropped and "twitter" is renamed to "x".
func TranslateSocials(socials map[string]string) ([]string, []string) {
	ordered := socialsInOrder(socials)
	return ordered.Split()
}

func socialsInOrder(socials map[string]string) utils.OrderedKVMap[string] {
	ordered := utils.OrderedKVMap[string]{}
	for key, value := range socials {
		key = strings.ToLower(strings.TrimSpace(key))
		if alias, ok := socialAliases[key]; ok {
			key = alias
		}
		order, ok := socialOrder[key]
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		ordered.Set(key, value, order)
	}
	return ordered
}
