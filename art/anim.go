package art

import "github.com/cambragol/fission-ce/fid"

// Animation codes, as packed into the animation field of a critter FID.
const (
	AnimStand = iota
	AnimWalk
	AnimJumpBegin
	AnimJumpEnd
	AnimClimbLadder
	AnimFalling
	AnimUpStairsRight
	AnimUpStairsLeft
	AnimDownStairsRight
	AnimDownStairsLeft
	AnimMagicHandsGround
	AnimMagicHandsMiddle
	AnimMagicHandsUp
	AnimDodge
	AnimHitFromFront
	AnimHitFromBack
	AnimThrowPunch
	AnimKickLeg
	AnimThrow
	AnimRunning

	// Knockdown and death animations.
	AnimFallBack
	AnimFallFront
	AnimBadLanding
	AnimBigHole
	AnimCharredBody
	AnimChunksOfFlesh
	AnimDancingAutofire
	AnimElectrify
	AnimSlicedInHalf
	AnimBurnedToNothing
	AnimElectrifiedToNothing
	AnimExplodedToNothing
	AnimMeltedToNothing
	AnimFireDance
	AnimFallBackBlood
	AnimFallFrontBlood

	AnimProneToStanding
	AnimBackToStanding

	// Weapon animations.
	AnimTakeOut
	AnimPutAway
	AnimParry
	AnimThrust
	AnimSwing
	AnimPoint
	AnimUnpoint
	AnimFireSingle
	AnimFireBurst
	AnimFireContinuous

	// Single frame death animations, in the same order as the knockdown
	// and death animations.
	AnimFallBackSF
	AnimFallFrontSF
	AnimBadLandingSF
	AnimBigHoleSF
	AnimCharredBodySF
	AnimChunksOfFleshSF
	AnimDancingAutofireSF
	AnimElectrifySF
	AnimSlicedInHalfSF
	AnimBurnedToNothingSF
	AnimElectrifiedToNothingSF
	AnimExplodedToNothingSF
	AnimMeltedToNothingSF
	AnimFireDanceSF
	AnimFallBackBloodSF
	AnimFallFrontBloodSF

	AnimCalledShotPic

	AnimCount
)

// Weapon codes, as packed into the weapon field of a critter FID.
const (
	WeaponNone = iota
	WeaponKnife
	WeaponClub
	WeaponHammer
	WeaponSpear
	WeaponPistol
	WeaponSMG
	WeaponShotgun
	WeaponLaserRifle
	WeaponMinigun
	WeaponLauncher

	WeaponCount
)

// Fidget codes, as packed into the animation field of a head FID.
const (
	FidgetGood    = 1
	FidgetNeutral = 4
	FidgetBad     = 7
)

// DefaultRotationPolicy makes the critter knockdown and death animations
// directional, except the fire dance.
var DefaultRotationPolicy = fid.NewRotationPolicy(fid.Critters, AnimFallBack, AnimFallFrontBlood, AnimFireDance)

// aliased holds the critter animations drawn with the art of another critter
// row, named by the critter side file.
var aliased = map[int]bool{
	AnimElectrify:              true,
	AnimBurnedToNothing:        true,
	AnimElectrifiedToNothing:   true,
	AnimElectrifySF:            true,
	AnimBurnedToNothingSF:      true,
	AnimElectrifiedToNothingSF: true,
	AnimFireDance:              true,
	AnimCalledShotPic:          true,
}

// critterCode returns the two letters appended to a critter's base name to
// form the file name of one animation: the first names the weapon group, the
// second the animation.
func critterCode(anim, weapon int) (byte, byte, bool) {
	if weapon < 0 || weapon >= WeaponCount {
		return 0, 0, false
	}

	switch {
	case anim >= AnimTakeOut && anim <= AnimFireContinuous:
		if weapon == WeaponNone {
			return 0, 0, false
		}
		return weaponLetter(weapon), byte('c' + anim - AnimTakeOut), true
	case anim == AnimProneToStanding:
		return 'c', 'h', true
	case anim == AnimBackToStanding:
		return 'c', 'j', true
	case anim == AnimCalledShotPic:
		return 'n', 'a', true
	case anim >= AnimFallBackSF && anim < AnimCalledShotPic:
		return 'r', byte('a' + anim - AnimFallBackSF), true
	case anim >= AnimFallBack && anim <= AnimFallFrontBlood:
		return 'b', byte('a' + anim - AnimFallBack), true
	case anim == AnimThrow:
		switch weapon {
		case WeaponKnife:
			return 'd', 'm', true
		case WeaponSpear:
			return 'g', 'm', true
		}
		// Rocks and grenades.
		return 'a', 's', true
	case anim == AnimDodge:
		if weapon == WeaponNone {
			return 'a', 'n', true
		}
		return weaponLetter(weapon), 'e', true
	case anim < 0 || anim >= AnimCount:
		return 0, 0, false
	}

	if anim <= AnimWalk && weapon != WeaponNone {
		return weaponLetter(weapon), byte('a' + anim), true
	}
	return 'a', byte('a' + anim), true
}

func weaponLetter(weapon int) byte {
	return byte('d' + weapon - 1)
}

// Head file names are built from the animation code: headMood names the
// reaction (good, neutral, bad) and headClip the clip. A clip of 'f' is a
// fidget, whose number is taken from the weapon field.
const (
	headMood = "gggnnnbbbgnb"
	headClip = "vfngfbnfvppp"
)
