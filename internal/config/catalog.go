package config

import "github.com/gymgate/engine/internal/domain"

// Built-in exercise catalog. Every threshold is explicit per variant;
// YAML overrides adjust angles and reward economics but never the
// joint landmark triples.
var (
	specPushup = domain.ExerciseSpec{
		Type: domain.ExercisePushup,
		Kind: domain.KindRep,
		Rep: &domain.RepSpec{
			DownAngle:  100,
			UpAngle:    150,
			LeftJoint:  [3]domain.Landmark{domain.LeftShoulder, domain.LeftElbow, domain.LeftWrist},
			RightJoint: [3]domain.Landmark{domain.RightShoulder, domain.RightElbow, domain.RightWrist},
		},
		Reward: domain.RewardSpec{
			RatePerUnit:     0.5,
			MinimumUnits:    3,
			BonusThreshold:  20,
			BonusMultiplier: 1.1,
		},
	}

	specSquat = domain.ExerciseSpec{
		Type: domain.ExerciseSquat,
		Kind: domain.KindRep,
		Rep: &domain.RepSpec{
			DownAngle:  100,
			UpAngle:    160,
			LeftJoint:  [3]domain.Landmark{domain.LeftHip, domain.LeftKnee, domain.LeftAnkle},
			RightJoint: [3]domain.Landmark{domain.RightHip, domain.RightKnee, domain.RightAnkle},
		},
		Reward: domain.RewardSpec{
			RatePerUnit:     0.4,
			MinimumUnits:    5,
			BonusThreshold:  25,
			BonusMultiplier: 1.1,
		},
	}

	specPlank = domain.ExerciseSpec{
		Type: domain.ExercisePlank,
		Kind: domain.KindHold,
		Hold: &domain.HoldSpec{
			MaxTiltDegrees:    30,
			MaxAlignmentRatio: 1.15,
		},
		Reward: domain.RewardSpec{
			RatePerUnit:     0.05,
			MinimumUnits:    15,
			BonusThreshold:  60,
			BonusMultiplier: 1.2,
		},
	}

	defaultCatalog = map[domain.ExerciseType]domain.ExerciseSpec{
		domain.ExercisePushup: specPushup,
		domain.ExerciseSquat:  specSquat,
		domain.ExercisePlank:  specPlank,
	}
)
