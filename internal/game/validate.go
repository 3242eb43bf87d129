package game

import (
	"github.com/openduel/duel-server/internal/catalog"
)

// Validation predicates. Each checks a proposed command against the
// current state and returns a ValidationError on the first violated rule.
// None of them mutates state, which keeps retries and duplicate checks
// side-effect free.

// ValidatePlayCard checks that side may play the given hand card now,
// optionally at target.
func (e *Engine) ValidatePlayCard(st *State, side Side, cardInstanceID string, target *Target) error {
	if err := e.validateActingTurn(st, side); err != nil {
		return err
	}
	_, card := st.Player(side).FindHandCard(cardInstanceID)
	if card == nil {
		return Invalidf("card %s is not in your hand", cardInstanceID)
	}
	def, err := e.cat.Get(card.CardID)
	if err != nil {
		return err
	}
	if def.Cost > st.Player(side).Mana.Current {
		return Invalidf("not enough mana: %s costs %d, have %d", def.Name, def.Cost, st.Player(side).Mana.Current)
	}
	if def.Type == catalog.TypeSpell {
		return e.validateSpellTarget(st, side, def, target)
	}
	return nil
}

// validateSpellTarget checks target presence, existence and the spell's
// side restriction, so rejection always happens before any mutation.
func (e *Engine) validateSpellTarget(st *State, side Side, def catalog.CardDefinition, target *Target) error {
	action := spellAction(def)
	if action == catalog.ActionCoin {
		// The Coin ignores any target.
		return nil
	}
	if target == nil {
		return Invalidf("%s requires a target", def.Name)
	}
	switch target.Kind {
	case TargetHero:
		if !target.Side.Valid() {
			return Invalidf("no such hero side %q", target.Side)
		}
	case TargetMinion:
		if !target.Side.Valid() {
			return Invalidf("no such board side %q", target.Side)
		}
		if _, m := st.FindMinion(target.Side, target.InstanceID); m == nil {
			return Invalidf("target minion %s is not on the board", target.InstanceID)
		}
	default:
		return Invalidf("unknown target kind %q", target.Kind)
	}
	switch action {
	case catalog.ActionFirebolt:
		if target.Side == side {
			return Invalidf("%s must target an enemy", def.Name)
		}
	case catalog.ActionHeal:
		if target.Side != side {
			return Invalidf("%s must target a friendly character", def.Name)
		}
	}
	return nil
}

// ValidateEndTurn checks that side may end the current turn.
func (e *Engine) ValidateEndTurn(st *State, side Side) error {
	return e.validateActingTurn(st, side)
}

// ValidateAttack checks that side's minion attackerID may attack target.
func (e *Engine) ValidateAttack(st *State, side Side, attackerID string, target Target) error {
	if err := e.validateActingTurn(st, side); err != nil {
		return err
	}
	_, attacker := st.FindMinion(side, attackerID)
	if attacker == nil {
		return Invalidf("attacker %s is not on your board", attackerID)
	}
	if attacker.Attack <= 0 {
		return Invalidf("minion %s cannot attack", attackerID)
	}
	if attacker.AttacksRemaining <= 0 {
		return Invalidf("minion %s has no attacks left this turn", attackerID)
	}
	switch target.Kind {
	case TargetHero:
		if target.Side == side {
			return Invalidf("cannot attack your own hero")
		}
	case TargetMinion:
		if target.Side == side {
			return Invalidf("cannot attack your own minion")
		}
		if _, m := st.FindMinion(target.Side, target.InstanceID); m == nil {
			return Invalidf("defender %s is not on the board", target.InstanceID)
		}
	default:
		return Invalidf("unknown target kind %q", target.Kind)
	}
	return nil
}

// ValidateMulliganReplace checks that side may still swap the given
// opening-hand card.
func (e *Engine) ValidateMulliganReplace(st *State, side Side, cardInstanceID string) error {
	if st.Stage != StageMulligan {
		return Invalidf("mulligan stage is over")
	}
	if st.Mulligan.Applied[side] {
		return Invalidf("mulligan already applied")
	}
	_, card := st.Player(side).FindHandCard(cardInstanceID)
	if card == nil {
		return Invalidf("card %s is not in your hand", cardInstanceID)
	}
	if st.Mulligan.Replaced[cardInstanceID] {
		return Invalidf("card %s was already replaced", cardInstanceID)
	}
	if card.CardID == catalog.CardCoin {
		return Invalidf("the coin cannot be replaced")
	}
	return nil
}

// ValidateMulliganApply checks that side may lock in its opening hand.
func (e *Engine) ValidateMulliganApply(st *State, side Side) error {
	if st.Stage != StageMulligan {
		return Invalidf("mulligan stage is over")
	}
	if st.Mulligan.Applied[side] {
		return Invalidf("mulligan already applied")
	}
	return nil
}

// validateActingTurn holds the checks shared by every Play-stage command:
// the match is live, it is side's turn, and the turn is in its main phase.
func (e *Engine) validateActingTurn(st *State, side Side) error {
	if st.Finished() {
		return Invalidf("the match is over")
	}
	if st.Stage != StagePlay {
		return Invalidf("match has not started yet")
	}
	if st.Turn.Current != side {
		return Invalidf("it is not your turn")
	}
	if st.Turn.Phase != PhaseMain {
		return Invalidf("turn is not in its main phase")
	}
	return nil
}

// spellAction returns the cast action of a spell definition, if any.
func spellAction(def catalog.CardDefinition) catalog.Action {
	for _, eff := range def.Effects {
		if eff.Trigger == catalog.TriggerCast {
			return eff.Action
		}
	}
	return ""
}
