// Package student contains the domain model of a tracked student.
//
// A Student belongs to exactly one classroom for its whole life; there is no
// reassignment operation. Deleting a student is the only way to delete its
// attendance history, and the two happen in one transaction (see the
// application command package).
//
//	s, err := student.New("Ada Lovelace", classroomID, time.Now())
//	if err != nil {
//	    // shared.IsValidation(err) == true
//	}
package student
