package protocol

// CarService is an add-on offered with the monthly car wash.
type CarService struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Coach trains at a partner gym.
type Coach struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Gym is a partner fitness center.
type Gym struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	Rating   float64 `json:"rating"`
	Coaches  []Coach `json:"coaches"`
}

// TrainingSession is a booked session with a coach. Date and Time are kept
// as the user entered them (YYYY-MM-DD and HH:MM).
type TrainingSession struct {
	ID      string `json:"id"`
	GymID   string `json:"gym_id"`
	CoachID string `json:"coach_id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// NotificationPreferences are the email categories a user receives.
type NotificationPreferences struct {
	News      bool `json:"news"`
	Offers    bool `json:"offers"`
	Surveys   bool `json:"surveys"`
	Developer bool `json:"developer"`
}

// DefaultNotificationPreferences subscribes to everything but developer updates.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{News: true, Offers: true, Surveys: true}
}
