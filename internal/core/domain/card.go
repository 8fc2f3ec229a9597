package domain

// CardRarity classifies a trading card's rarity tier.
type CardRarity string

const (
	RarityCommon    CardRarity = "COMMON"
	RarityRare      CardRarity = "RARE"
	RarityEpic      CardRarity = "EPIC"
	RarityLegendary CardRarity = "LEGENDARY"
)

// Card represents a piece of trading-card artwork, either AI-generated
// (Prompt set) or user-uploaded.
type Card struct {
	CardID      string     `json:"cardID"` // Primary Key (UUID)
	OwnerID     string     `json:"ownerID"`
	CreatorID   string     `json:"creatorID"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Prompt      string     `json:"prompt,omitempty"` // Generation prompt, empty for uploads
	ImageURL    string     `json:"imageURL"`
	ImageCID    string     `json:"imageCID,omitempty"` // IPFS content id once pinned
	Rarity      CardRarity `json:"rarity"`
	Featured    bool       `json:"featured"`
	Views       int64      `json:"views"`
	Sales       int64      `json:"sales"`
	AuditFields
}
