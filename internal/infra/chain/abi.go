package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BaseCardABI is the subset of the BaseCard contract interface used here.
const BaseCardABI = `[
  {
    "type": "function",
    "name": "mintBaseCard",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "_initialCardData",
        "type": "tuple",
        "internalType": "struct BaseCard.CardData",
        "components": [
          {"name": "imageURI", "type": "string", "internalType": "string"},
          {"name": "nickname", "type": "string", "internalType": "string"},
          {"name": "role", "type": "string", "internalType": "string"},
          {"name": "bio", "type": "string", "internalType": "string"},
          {"name": "basename", "type": "string", "internalType": "string"}
        ]
      },
      {"name": "_socialKeys", "type": "string[]", "internalType": "string[]"},
      {"name": "_socialValues", "type": "string[]", "internalType": "string[]"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "hasMinted",
    "stateMutability": "view",
    "inputs": [{"name": "", "type": "address", "internalType": "address"}],
    "outputs": [{"name": "", "type": "bool", "internalType": "bool"}]
  },
  {
    "type": "event",
    "name": "MintBaseCard",
    "anonymous": false,
    "inputs": [
      {"name": "user", "type": "address", "indexed": true, "internalType": "address"},
      {"name": "tokenId", "type": "uint256", "indexed": true, "internalType": "uint256"}
    ]
  }
]`

// cardData mirrors the BaseCard.CardData tuple.
type cardData struct {
	ImageURI string `abi:"imageURI"`
	Nickname string `abi:"nickname"`
	Role     string `abi:"role"`
	Bio      string `abi:"bio"`
	Basename string `abi:"basename"`
}

func parseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(BaseCardABI))
}
