package model

import "time"

type ContactMessage struct {
	ID        string    `firestore:"-" json:"id"`
	Name      string    `firestore:"name" json:"name"`
	Email     string    `firestore:"email" json:"email"`
	Subject   string    `firestore:"subject" json:"subject"`
	Message   string    `firestore:"message" json:"message"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}
