package minifs

// Example usage:
//
//	v, err := minifs.Boot("disk.img", minifs.DefaultGeometry)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := v.FileCreate("/hello.txt"); err != nil {
//		log.Fatal(err)
//	}
//	fd, err := v.FileOpen("/hello.txt")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err := v.FileWrite(fd, []byte("hello")); err != nil {
//		log.Fatal(err)
//	}
//	if err := v.FileClose(fd); err != nil {
//		log.Fatal(err)
//	}
//	if err := v.Sync(); err != nil {
//		log.Fatal(err)
//	}
