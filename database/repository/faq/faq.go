package faqRepo

import (
	"context"
	"fmt"

	"harold/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FAQRepository loads the curated question/answer pairs.
type FAQRepository interface {
	ListFAQs(ctx context.Context) ([]models.FAQ, error)
}

type mongoFAQRepo struct {
	coll *mongo.Collection
}

func NewMongoFAQRepo(db *mongo.Database) FAQRepository {
	return &mongoFAQRepo{coll: db.Collection("faqs")}
}

func (r *mongoFAQRepo) ListFAQs(ctx context.Context) ([]models.FAQ, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find faqs: %w", err)
	}
	defer cursor.Close(ctx)

	var faqs []models.FAQ
	if err := cursor.All(ctx, &faqs); err != nil {
		return nil, fmt.Errorf("decode faqs: %w", err)
	}
	return faqs, nil
}

// StaticFAQRepo serves a fixed list.
type StaticFAQRepo []models.FAQ

func (s StaticFAQRepo) ListFAQs(context.Context) ([]models.FAQ, error) {
	return []models.FAQ(s), nil
}

// DefaultFAQs is used when the store has none.
func DefaultFAQs() StaticFAQRepo {
	return StaticFAQRepo{
		{Question: "What time is check-in and check-out?", Answer: "Check-in starts at 3 PM and check-out is until 12 PM."},
		{Question: "Is breakfast included with the room?", Answer: "Breakfast is included for deluxe rooms and suites. Other rooms can add it for 35 per person."},
		{Question: "Do you have free parking for guests?", Answer: "Yes, parking is free for staying guests."},
		{Question: "Is there wifi in the rooms?", Answer: "Free high-speed wifi is available in every room and public area."},
		{Question: "Can I cancel my booking?", Answer: "Unpaid bookings are released automatically after 30 minutes. Paid bookings can be cancelled up to 48 hours before check-in."},
		{Question: "Are pets allowed in the hotel?", Answer: "Small pets are welcome in standard rooms for an extra fee."},
		{Question: "Do you have a swimming pool or gym?", Answer: "The rooftop pool and the gym are open daily from 6 AM to 10 PM."},
	}
}
