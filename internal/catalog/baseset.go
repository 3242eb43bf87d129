package catalog

// Card ids in the shipped base set. The Coin is a token: it is granted to
// the second player rather than drawn from a deck.
const (
	CardCoin         = "the_coin"
	CardFirebolt     = "firebolt"
	CardHealingTouch = "healing_touch"
	CardMarshWisp    = "marsh_wisp"
	CardRiverCroc    = "river_croc"
	CardIronlegBoar  = "ironleg_boar"
	CardOgreBruiser  = "ogre_bruiser"
	CardLoreSeeker   = "lore_seeker"
	CardShieldBearer = "shield_bearer"
	CardHillGiant    = "hill_giant"
)

// Rarity values used in the base set.
const (
	RarityCommon = "common"
	RarityRare   = "rare"
	RarityToken  = "token"
)

// BaseSet returns the card table shipped with the server.
func BaseSet() []CardDefinition {
	return []CardDefinition{
		{
			ID:     CardCoin,
			Name:   "The Coin",
			Type:   TypeSpell,
			Cost:   0,
			Rarity: RarityToken,
			Text:   "Gain 1 mana this turn only.",
			Effects: []EffectDescriptor{
				{Trigger: TriggerCast, Action: ActionCoin, Amount: 1},
			},
		},
		{
			ID:     CardFirebolt,
			Name:   "Firebolt",
			Type:   TypeSpell,
			Cost:   2,
			Rarity: RarityCommon,
			Text:   "Deal 2 damage to an enemy.",
			Effects: []EffectDescriptor{
				{Trigger: TriggerCast, Action: ActionFirebolt, Amount: 2},
			},
		},
		{
			ID:     CardHealingTouch,
			Name:   "Healing Touch",
			Type:   TypeSpell,
			Cost:   3,
			Rarity: RarityCommon,
			Text:   "Restore 4 health to a friendly character.",
			Effects: []EffectDescriptor{
				{Trigger: TriggerCast, Action: ActionHeal, Amount: 4},
			},
		},
		{
			ID:     CardMarshWisp,
			Name:   "Marsh Wisp",
			Type:   TypeMinion,
			Cost:   1,
			Rarity: RarityCommon,
			Attack: 1,
			Health: 2,
		},
		{
			ID:     CardRiverCroc,
			Name:   "River Croc",
			Type:   TypeMinion,
			Cost:   2,
			Rarity: RarityCommon,
			Tribe:  "beast",
			Attack: 2,
			Health: 3,
		},
		{
			ID:     CardIronlegBoar,
			Name:   "Ironleg Boar",
			Type:   TypeMinion,
			Cost:   3,
			Rarity: RarityCommon,
			Tribe:  "beast",
			Attack: 4,
			Health: 2,
		},
		{
			ID:     CardOgreBruiser,
			Name:   "Ogre Bruiser",
			Type:   TypeMinion,
			Cost:   4,
			Rarity: RarityCommon,
			Attack: 4,
			Health: 5,
		},
		{
			ID:     CardLoreSeeker,
			Name:   "Lore Seeker",
			Type:   TypeMinion,
			Cost:   2,
			Rarity: RarityRare,
			Attack: 1,
			Health: 1,
			Text:   "Summon: draw a card.",
			Effects: []EffectDescriptor{
				{Trigger: TriggerSummon, Action: ActionTakeCard, Amount: 1},
			},
		},
		{
			ID:     CardShieldBearer,
			Name:   "Shield Bearer",
			Type:   TypeMinion,
			Cost:   1,
			Rarity: RarityCommon,
			Attack: 0,
			Health: 4,
		},
		{
			ID:     CardHillGiant,
			Name:   "Hill Giant",
			Type:   TypeMinion,
			Cost:   6,
			Rarity: RarityRare,
			Attack: 6,
			Health: 7,
		},
	}
}
