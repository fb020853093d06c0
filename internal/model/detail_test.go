package model

import (
	"testing"
	"time"
)

func detailRide() Ride {
	rd := sampleRide(time.Now().Add(time.Hour))
	rd.Vehicle = Vehicle{Make: "VW", Model: "Golf", Color: "grey", Plate: "KLM-4321"}
	rd.Passengers = []PassengerEntry{
		{UserID: 2, SeatsBooked: 1, Status: PassengerStatusConfirmed},
		{UserID: 3, SeatsBooked: 1, Status: PassengerStatusPending},
	}
	return rd
}

func driverProfile() *DriverProfile {
	avatar := "https://cdn.example/a.png"
	return &DriverProfile{UserID: 1, FirstName: "Nikos", LastName: "K", Phone: "6900000000", AvatarURL: &avatar, Rating: 4.9}
}

func TestDetailDriverViewIsComplete(t *testing.T) {
	rd := detailRide()
	d := rd.Detail(ViewerDriver, driverProfile())

	if len(d.Passengers) != 2 {
		t.Fatalf("driver must see the passenger list, got %d entries", len(d.Passengers))
	}
	if d.Vehicle.Plate == "" {
		t.Fatal("driver must see the license plate")
	}
	if d.Driver == nil || d.Driver.Phone == "" {
		t.Fatal("driver view keeps the full profile")
	}
	if d.BookedSeats != 1 || d.RemainingSeats != 2 {
		t.Fatalf("derived seats wrong: booked=%d remaining=%d", d.BookedSeats, d.RemainingSeats)
	}
}

func TestDetailPassengerViewHidesListKeepsContact(t *testing.T) {
	rd := detailRide()
	d := rd.Detail(ViewerPassenger, driverProfile())

	if d.Passengers != nil {
		t.Fatal("passenger must not see the membership list")
	}
	if d.Vehicle.Plate != "" {
		t.Fatal("passenger must not see the license plate")
	}
	if d.Driver == nil || d.Driver.Phone != "6900000000" {
		t.Fatalf("passenger keeps driver contact, got %+v", d.Driver)
	}
}

func TestDetailPublicViewStripsEverythingPrivate(t *testing.T) {
	rd := detailRide()
	d := rd.Detail(ViewerPublic, driverProfile())

	if d.Passengers != nil || d.Vehicle.Plate != "" {
		t.Fatal("public view must hide passengers and plate")
	}
	if d.Driver == nil {
		t.Fatal("public view keeps a reduced driver profile")
	}
	if d.Driver.Phone != "" || d.Driver.LastName != "" {
		t.Fatalf("public profile too wide: %+v", d.Driver)
	}
	if d.Driver.FirstName != "Nikos" || d.Driver.Rating != 4.9 {
		t.Fatalf("public profile missing allowed fields: %+v", d.Driver)
	}
}

func TestDetailSurvivesMissingDriverProfile(t *testing.T) {
	rd := detailRide()
	d := rd.Detail(ViewerPublic, nil)
	if d.Driver != nil {
		t.Fatal("missing profile must degrade to nil driver, not fail")
	}
}
