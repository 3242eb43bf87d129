package game

import (
	"fmt"

	"github.com/openduel/duel-server/internal/catalog"
	"github.com/openduel/duel-server/internal/rng"
)

// Reducers. Everything below assumes the matching validation already
// passed; state is mutated in place. Errors returned here are invariant
// violations, not user errors.

// GainMana raises side's mana ceiling by one (capped), refills the pool
// and clears any temporary bonus. Runs once per turn start.
func (e *Engine) GainMana(st *State, side Side) {
	mana := &st.Player(side).Mana
	if mana.Max < e.cfg.MaxMana {
		mana.Max++
	}
	mana.Current = mana.Max
	mana.Temporary = 0
}

// DrawCard moves the front card of side's deck into its hand with a fresh
// instance id. Drawing from an empty deck is a no-op: fatigue damage is
// deliberately not part of this ruleset.
func (e *Engine) DrawCard(st *State, side Side) error {
	p := st.Player(side)
	if len(p.Deck) == 0 {
		return nil
	}
	cardID := p.Deck[0]
	p.Deck = p.Deck[1:]
	if _, err := e.cat.Get(cardID); err != nil {
		return fmt.Errorf("draw for side %s: %w", side, err)
	}
	p.Hand = append(p.Hand, &CardInHand{InstanceID: newInstanceID(), CardID: cardID})
	return nil
}

// StartTurn begins side's turn: mana gain, card draw, attack refresh, and
// a fresh turn deadline. Leaves the turn in its main phase.
func (e *Engine) StartTurn(st *State, side Side) error {
	e.GainMana(st, side)
	for i := 0; i < e.cfg.PerTurnDraw; i++ {
		if err := e.DrawCard(st, side); err != nil {
			return err
		}
	}
	for _, m := range st.Boards[side] {
		m.AttacksRemaining = 1
	}
	st.Turn.Phase = PhaseMain

	deadline := e.now().Add(e.cfg.TurnTimeout)
	st.Timers.TurnEndsAt = &deadline
	return nil
}

// EndTurn claws back the ending side's temporary mana and hands the turn
// to the other side. Callers always pair it with StartTurn for the new
// current side.
func (e *Engine) EndTurn(st *State, side Side) {
	mana := &st.Player(side).Mana
	mana.Current -= mana.Temporary
	if mana.Current < 0 {
		mana.Current = 0
	}
	mana.Temporary = 0

	st.Turn.Current = side.Opponent()
	st.Turn.Number++
	st.Turn.Phase = PhaseStart
}

// ApplyPlayCard removes the card from hand, debits its cost and resolves
// it: minions are summoned, spells are dispatched on their cast action.
func (e *Engine) ApplyPlayCard(st *State, side Side, cardInstanceID string, target *Target, placement Placement) error {
	p := st.Player(side)
	idx, card := p.FindHandCard(cardInstanceID)
	if card == nil {
		return fmt.Errorf("play card: %s not in hand for side %s after validation", cardInstanceID, side)
	}
	def, err := e.cat.Get(card.CardID)
	if err != nil {
		return fmt.Errorf("play card: %w", err)
	}
	if def.Cost > p.Mana.Current {
		return fmt.Errorf("play card: cost %d exceeds mana %d after validation", def.Cost, p.Mana.Current)
	}

	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	p.Mana.Current -= def.Cost

	switch def.Type {
	case catalog.TypeMinion:
		return e.summonMinion(st, side, def, placement)
	case catalog.TypeSpell:
		if err := e.resolveSpell(st, side, def, target); err != nil {
			return err
		}
		p.Graveyard = append(p.Graveyard, def.ID)
		return nil
	default:
		return fmt.Errorf("play card: unplayable card type %q", def.Type)
	}
}

func (e *Engine) summonMinion(st *State, side Side, def catalog.CardDefinition, placement Placement) error {
	minion := &Minion{
		InstanceID:       newInstanceID(),
		CardID:           def.ID,
		Attack:           def.Attack,
		Health:           def.Health,
		AttacksRemaining: 0,
	}
	if placement == PlacementLeft {
		st.Boards[side] = append([]*Minion{minion}, st.Boards[side]...)
	} else {
		st.Boards[side] = append(st.Boards[side], minion)
	}

	for _, eff := range def.Effects {
		if eff.Trigger != catalog.TriggerSummon {
			continue
		}
		switch eff.Action {
		case catalog.ActionTakeCard:
			for i := 0; i < eff.Amount; i++ {
				if err := e.DrawCard(st, side); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("summon %s: unhandled summon action %q", def.ID, eff.Action)
		}
	}
	return nil
}

// resolveSpell dispatches on the spell's cast action. The switch is the
// single place a new spell effect must be wired in: an unknown action is a
// hard error, never a silent no-op.
func (e *Engine) resolveSpell(st *State, side Side, def catalog.CardDefinition, target *Target) error {
	action := spellAction(def)
	amount := spellAmount(def)

	switch action {
	case catalog.ActionFirebolt:
		if target == nil {
			return fmt.Errorf("resolve %s: missing target after validation", def.ID)
		}
		if target.Side == side {
			return fmt.Errorf("resolve %s: friendly target after validation", def.ID)
		}
		return e.dealDamage(st, side, *target, amount)

	case catalog.ActionHeal:
		if target == nil {
			return fmt.Errorf("resolve %s: missing target after validation", def.ID)
		}
		if target.Side != side {
			return fmt.Errorf("resolve %s: enemy target after validation", def.ID)
		}
		return e.heal(st, *target, amount)

	case catalog.ActionCoin:
		p := st.Player(side)
		p.Mana.Current += amount
		p.Mana.Temporary += amount
		p.OwnsCoin = false
		return nil

	default:
		return fmt.Errorf("resolve %s: unhandled spell action %q", def.ID, action)
	}
}

// ApplyAttack resolves a declared attack. Minion trades are simultaneous:
// the defender takes damage first, then the attacker takes the defender's
// pre-damage attack value as retaliation even if the defender died.
func (e *Engine) ApplyAttack(st *State, side Side, attackerID string, target Target) error {
	_, attacker := st.FindMinion(side, attackerID)
	if attacker == nil {
		return fmt.Errorf("attack: attacker %s missing after validation", attackerID)
	}
	if attacker.Attack <= 0 {
		return fmt.Errorf("attack: minion %s has no attack value", attackerID)
	}
	if attacker.AttacksRemaining <= 0 {
		return fmt.Errorf("attack: minion %s has no attacks remaining after validation", attackerID)
	}
	attacker.AttacksRemaining--

	switch target.Kind {
	case TargetHero:
		e.damageHero(st, target.Side, attacker.Attack, side)
		return nil
	case TargetMinion:
		_, defender := st.FindMinion(target.Side, target.InstanceID)
		if defender == nil {
			return fmt.Errorf("attack: defender %s missing after validation", target.InstanceID)
		}
		retaliation := defender.Attack
		e.damageMinion(st, target.Side, defender.InstanceID, attacker.Attack)
		e.damageMinion(st, side, attacker.InstanceID, retaliation)
		return nil
	default:
		return fmt.Errorf("attack: unknown target kind %q", target.Kind)
	}
}

// dealDamage routes spell damage to a hero or minion target.
func (e *Engine) dealDamage(st *State, source Side, target Target, amount int) error {
	switch target.Kind {
	case TargetHero:
		e.damageHero(st, target.Side, amount, source)
		return nil
	case TargetMinion:
		e.damageMinion(st, target.Side, target.InstanceID, amount)
		return nil
	default:
		return fmt.Errorf("deal damage: unknown target kind %q", target.Kind)
	}
}

// damageHero applies damage to a hero. The first lethal event decides the
// match: the winner is the damage source and is never overwritten by
// later damage in the same resolution.
func (e *Engine) damageHero(st *State, side Side, amount int, source Side) {
	hero := &st.Player(side).Hero
	hero.HP -= amount
	if hero.HP <= 0 && st.Winner == nil {
		winner := source
		st.Winner = &winner
		st.Timers.MulliganEndsAt = nil
		st.Timers.TurnEndsAt = nil
	}
}

// damageMinion applies damage to a board minion, moving it to its owner's
// graveyard when its health drops to zero or below.
func (e *Engine) damageMinion(st *State, side Side, instanceID string, amount int) {
	idx, m := st.FindMinion(side, instanceID)
	if m == nil {
		return
	}
	m.Health -= amount
	if m.Health <= 0 {
		st.Boards[side] = append(st.Boards[side][:idx], st.Boards[side][idx+1:]...)
		p := st.Player(side)
		p.Graveyard = append(p.Graveyard, m.CardID)
	}
}

// heal restores health. Heroes clamp at max health; minions carry no
// tracked max and are restored unclamped.
func (e *Engine) heal(st *State, target Target, amount int) error {
	switch target.Kind {
	case TargetHero:
		hero := &st.Player(target.Side).Hero
		hero.HP += amount
		if hero.HP > hero.MaxHP {
			hero.HP = hero.MaxHP
		}
		return nil
	case TargetMinion:
		_, m := st.FindMinion(target.Side, target.InstanceID)
		if m == nil {
			return fmt.Errorf("heal: minion %s missing after validation", target.InstanceID)
		}
		m.Health += amount
		return nil
	default:
		return fmt.Errorf("heal: unknown target kind %q", target.Kind)
	}
}

// ApplyMulliganReplace swaps one opening-hand card: the chosen card is
// shuffled back into the deck and a replacement is drawn into the same
// hand position. The replacement is marked so it cannot be swapped again.
func (e *Engine) ApplyMulliganReplace(st *State, side Side, cardInstanceID string) error {
	p := st.Player(side)
	idx, card := p.FindHandCard(cardInstanceID)
	if card == nil {
		return fmt.Errorf("mulligan replace: %s not in hand after validation", cardInstanceID)
	}

	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	p.Deck = append(p.Deck, card.CardID)
	rng.Shuffle(p.Deck, e.rand)

	delete(st.Mulligan.Replaced, cardInstanceID)
	if len(p.Deck) > 0 {
		drawn := &CardInHand{InstanceID: newInstanceID(), CardID: p.Deck[0]}
		p.Deck = p.Deck[1:]
		p.Hand = append(p.Hand[:idx], append([]*CardInHand{drawn}, p.Hand[idx:]...)...)
		st.Mulligan.Replaced[drawn.InstanceID] = true
	}
	return nil
}

// ApplyMulliganApply locks in side's opening hand. When both sides have
// applied, the mulligan completes and play begins.
func (e *Engine) ApplyMulliganApply(st *State, side Side) error {
	st.Mulligan.Applied[side] = true
	if st.Mulligan.Applied[SideA] && st.Mulligan.Applied[SideB] {
		return e.CompleteMulligan(st)
	}
	return nil
}

// CompleteMulligan force-applies any side that has not locked in,
// transitions the match to the Play stage and starts the first turn.
// Safe to call from the deadline path even if one side already applied.
func (e *Engine) CompleteMulligan(st *State) error {
	if st.Stage != StageMulligan {
		return nil
	}
	st.Mulligan.Applied[SideA] = true
	st.Mulligan.Applied[SideB] = true
	st.Stage = StagePlay
	st.Timers.MulliganEndsAt = nil
	return e.StartTurn(st, st.Turn.Current)
}

// spellAmount returns the cast effect's magnitude.
func spellAmount(def catalog.CardDefinition) int {
	for _, eff := range def.Effects {
		if eff.Trigger == catalog.TriggerCast {
			return eff.Amount
		}
	}
	return 0
}
